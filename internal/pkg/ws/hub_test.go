package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// dial 建立一对 server/client 连接，返回注册到 hub 的服务端 Client 与浏览器侧连接
func dial(t *testing.T, hub *Hub, email string) (*Client, *websocket.Conn) {
	t.Helper()

	registered := make(chan *Client, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := &Client{Email: email, Conn: conn}
		hub.Register(c)
		registered <- c
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	select {
	case c := <-registered:
		return c, conn
	case <-time.After(2 * time.Second):
		t.Fatal("server did not register client")
		return nil, nil
	}
}

func TestHub_Empty(t *testing.T) {
	hub := NewHub()

	assert.Equal(t, 0, hub.ConnectionCount())
	assert.False(t, hub.IsOnline("u@example.com"))
	assert.NoError(t, hub.SendToUser("u@example.com", &Message{Type: "credits_updated"}))
}

func TestHub_SendToUser_AllConnections(t *testing.T) {
	hub := NewHub()

	_, tab1 := dial(t, hub, "u@example.com")
	_, tab2 := dial(t, hub, "u@example.com")
	_, other := dial(t, hub, "other@example.com")

	assert.Equal(t, 3, hub.ConnectionCount())
	assert.True(t, hub.IsOnline("u@example.com"))

	err := hub.SendToUser("u@example.com", &Message{Type: "credits_updated", Data: map[string]int{"purchased_credits": 500}})
	require.NoError(t, err)

	for _, conn := range []*websocket.Conn{tab1, tab2} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "credits_updated", msg.Type)
	}

	// 其他用户收不到
	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err)
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub()

	c1, _ := dial(t, hub, "u@example.com")
	c2, _ := dial(t, hub, "u@example.com")

	hub.Unregister(c1)
	assert.True(t, hub.IsOnline("u@example.com"))

	hub.Unregister(c2)
	assert.False(t, hub.IsOnline("u@example.com"))
	assert.Equal(t, 0, hub.ConnectionCount())
}

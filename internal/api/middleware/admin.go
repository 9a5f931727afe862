package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/qs3c/credit_go_server/internal/pkg/response"
)

const AdminKeyHeader = "X-Admin-Key"

// AdminKey 运营接口鉴权：X-Admin-Key 与配置中的 bcrypt 哈希比对。未配置哈希时拒绝所有请求。
func AdminKey(keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(AdminKeyHeader)
		if keyHash == "" || key == "" {
			response.PermissionError(c, "")
			c.Abort()
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
			log.Warn().Str("component", "admin").Str("ip", c.ClientIP()).Msg("admin key rejected")
			response.PermissionError(c, "")
			c.Abort()
			return
		}

		c.Next()
	}
}

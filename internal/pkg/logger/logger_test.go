package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"info", zerolog.InfoLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer

	w := writer("json", &buf)
	assert.Equal(t, &buf, w)

	w = writer("console", &buf)
	_, ok := w.(zerolog.ConsoleWriter)
	assert.True(t, ok)
}

func TestInit_Component(t *testing.T) {
	l := Init(Config{Level: "debug", Format: "json", Component: "worker"})
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	assert.NotNil(t, l)

	Init(Config{Level: "info"})
}

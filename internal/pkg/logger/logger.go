package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config 日志配置
type Config struct {
	Level     string // debug, info, warn, error
	Format    string // json, console
	Component string // server, worker, ledgerctl
}

// Init 初始化全局 zerolog 日志
func Init(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	ctx := zerolog.New(writer(cfg.Format, os.Stderr)).With().Timestamp()
	if c := strings.TrimSpace(cfg.Component); c != "" {
		ctx = ctx.Str("component", c)
	}

	l := ctx.Logger()
	log.Logger = l
	return l
}

// ParseLevel 解析日志级别，无法识别时使用 info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "trace":
		return zerolog.TraceLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func writer(format string, out io.Writer) io.Writer {
	if strings.EqualFold(strings.TrimSpace(format), "console") {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return out
}

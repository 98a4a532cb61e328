// Package log 提供全局 zerolog 基础 logger 与按组件派生的子 logger。
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config 是 Configure 的参数。零值可用：info 级别、输出到 stderr。
type Config struct {
	Level  string    // "debug" / "info" / "warn" ...；为空时读 LOG_LEVEL
	Output io.Writer // 为空时使用 os.Stderr（stdout 留给 presence 记录）
}

var (
	mu   sync.RWMutex
	base = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// Configure 设置全局 logger。CLI 在读取配置后调用一次；测试可多次调用。
func Configure(cfg Config) {
	level := zerolog.InfoLevel
	lv := cfg.Level
	if lv == "" {
		lv = os.Getenv("LOG_LEVEL")
	}
	if lv != "" {
		if parsed, err := zerolog.ParseLevel(lv); err == nil {
			level = parsed
		}
	}
	zerolog.TimeFieldFormat = time.RFC3339

	w := cfg.Output
	if w == nil {
		w = os.Stderr
	}

	mu.Lock()
	base = zerolog.New(w).Level(level).With().Timestamp().Str("app", "alpresence").Logger()
	mu.Unlock()
}

// Base 返回当前的基础 logger。
func Base() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// WithComponent 返回带 component 字段的子 logger。
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str("component", component).Logger()
}

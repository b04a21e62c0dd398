package log

import (
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	initOnce    sync.Once
	initialized atomic.Bool
)

// Setup installs the default slog logger, writing JSON records to a rotated
// file. Safe to call more than once; only the first call wins.
func Setup(logFile string, debug bool) {
	initOnce.Do(func() {
		logRotator := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // MB
			MaxBackups: 0,
			MaxAge:     30, // days
			Compress:   false,
		}

		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}

		logger := slog.NewJSONHandler(logRotator, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		})

		slog.SetDefault(slog.New(logger))
		initialized.Store(true)
	})
}

func Initialized() bool {
	return initialized.Load()
}

// MaskAPIKey masks an API key for log output, keeping only a short prefix and
// suffix.
func MaskAPIKey(apiKey string) string {
	if apiKey == "" {
		return "***EMPTY***"
	}

	key := strings.TrimPrefix(apiKey, "Bearer ")
	key = strings.TrimPrefix(key, "sk-")

	keyLen := len(key)
	if keyLen <= 4 {
		return strings.Repeat("*", keyLen)
	} else if keyLen <= 10 {
		return key[:2] + strings.Repeat("*", keyLen-4) + key[keyLen-2:]
	}
	return key[:5] + strings.Repeat("*", keyLen-10) + key[keyLen-5:]
}

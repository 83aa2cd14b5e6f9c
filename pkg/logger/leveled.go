package logger

import (
	"context"
	"fmt"
)

// Leveled adapts a Logger to the printf-free key/value logger shape used by
// HTTP client libraries such as go-retryablehttp.
type Leveled struct {
	l Logger
}

// Retryable wraps l for use as a retryablehttp.LeveledLogger.
func Retryable(l Logger) *Leveled {
	return &Leveled{l: l}
}

func (r *Leveled) Error(msg string, keysAndValues ...interface{}) {
	r.l.Error(context.Background(), msg, kvFields(keysAndValues)...)
}

func (r *Leveled) Info(msg string, keysAndValues ...interface{}) {
	r.l.Info(context.Background(), msg, kvFields(keysAndValues)...)
}

// Debug is where retryablehttp reports every attempt.
func (r *Leveled) Debug(msg string, keysAndValues ...interface{}) {
	r.l.Debug(context.Background(), msg, kvFields(keysAndValues)...)
}

func (r *Leveled) Warn(msg string, keysAndValues ...interface{}) {
	r.l.Warn(context.Background(), msg, kvFields(keysAndValues)...)
}

func kvFields(kv []interface{}) []Field {
	fields := make([]Field, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if i+1 >= len(kv) {
			fields = append(fields, Any(key, nil))
			break
		}
		fields = append(fields, Any(key, kv[i+1]))
	}
	return fields
}

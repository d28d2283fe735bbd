package port

import (
	"context"
	"time"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// LogRecord запись журнала для внешнего приемника
type LogRecord struct {
	Time      time.Time
	Level     LogLevel
	Message   string
	RequestID string
	Fields    map[string]any
}

// LogSink принимает записи журнала от pkg/logger.
//
// Enqueue вызывается на каждой строке лога и не должен блокировать:
// при переполнении запись отбрасывается и возвращается false.
// Flush отправляет накопленное, вызывается при остановке сервиса.
type LogSink interface {
	Enqueue(record LogRecord) bool
	Flush(ctx context.Context) error
}

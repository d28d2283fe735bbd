// Package logger пишет строки вида "время УРОВЕНЬ сообщение | k=v" в stdout
// и, если подключен приемник, дублирует записи в него (CloudWatch Logs).
package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dreschagin/vessel-guard/internal/application/port"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]port.LogLevel{
	LevelDebug: port.LogLevelDebug,
	LevelInfo:  port.LogLevelInfo,
	LevelWarn:  port.LogLevelWarn,
	LevelError: port.LogLevelError,
}

// ParseLevel понимает debug/info/warn/error в любом регистре, иначе info
func ParseLevel(level string) Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// sinkSlot общий для логгера и всех его потомков из With
type sinkSlot struct {
	mu   sync.RWMutex
	sink port.LogSink
}

type Logger struct {
	out   *log.Logger
	level Level
	bound []any
	slot  *sinkSlot
	now   func() time.Time
}

func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

func NewWithWriter(level string, w io.Writer) *Logger {
	return &Logger{
		out:   log.New(w, "", 0),
		level: ParseLevel(level),
		slot:  &sinkSlot{},
		now:   time.Now,
	}
}

// With возвращает логгер, добавляющий пары key/value к каждой записи.
// Приемник остается общим с родителем.
func (l *Logger) With(args ...any) *Logger {
	if len(args) == 0 {
		return l
	}
	child := *l
	child.bound = append(append(make([]any, 0, len(l.bound)+len(args)), l.bound...), args...)
	return &child
}

// FromContext добавляет request_id из контекста, если он там есть
func (l *Logger) FromContext(ctx context.Context) *Logger {
	if id := RequestID(ctx); id != "" {
		return l.With("request_id", id)
	}
	return l
}

// SetLogSink подключает внешний приемник; nil отключает его
func (l *Logger) SetLogSink(sink port.LogSink) {
	l.slot.mu.Lock()
	l.slot.sink = sink
	l.slot.mu.Unlock()
}

func (l *Logger) Enabled(level Level) bool { return level >= l.level }

func (l *Logger) Debug(msg string, args ...any) { l.write(LevelDebug, msg, args) }
func (l *Logger) Info(msg string, args ...any)  { l.write(LevelInfo, msg, args) }
func (l *Logger) Warn(msg string, args ...any)  { l.write(LevelWarn, msg, args) }

// Error добавляет err.Error() полем error
func (l *Logger) Error(msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.write(LevelError, msg, args)
}

func (l *Logger) write(level Level, msg string, args []any) {
	if !l.Enabled(level) {
		return
	}
	now := l.now()
	pairs := append(append(make([]any, 0, len(l.bound)+len(args)), l.bound...), args...)

	var line strings.Builder
	line.WriteString(now.Format("2006-01-02 15:04:05.000"))
	line.WriteString(" ")
	line.WriteString(string(levelNames[level]))
	line.WriteString(" ")
	line.WriteString(msg)

	var fields map[string]any
	if len(pairs) >= 2 {
		fields = make(map[string]any, len(pairs)/2)
		line.WriteString(" |")
		// непарный хвост отбрасывается
		for i := 0; i+1 < len(pairs); i += 2 {
			key := fmt.Sprint(pairs[i])
			fmt.Fprintf(&line, " %s=%v", key, pairs[i+1])
			fields[key] = pairs[i+1]
		}
	}
	l.out.Println(line.String())

	l.slot.mu.RLock()
	sink := l.slot.sink
	l.slot.mu.RUnlock()
	if sink == nil {
		return
	}
	record := port.LogRecord{Time: now, Level: levelNames[level], Message: msg, Fields: fields}
	if id, ok := fields["request_id"].(string); ok {
		record.RequestID = id
		delete(fields, "request_id")
	}
	sink.Enqueue(record)
}

type requestIDKey struct{}

// WithRequestID кладет идентификатор запроса в контекст
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID идентификатор запроса из контекста или пустая строка
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

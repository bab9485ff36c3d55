package logger

import (
	"context"
	"io"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// До вызова Init логгер ничего не пишет
var log = zerolog.Nop()

type ctxKey struct{}

func Init(serviceName string, level string) {
	log = build(os.Stdout, serviceName, level)
}

func InitWithWriter(serviceName string, level string, w io.Writer) {
	log = build(w, serviceName, level)
}

// InitLogstash дублирует вывод в Logstash по TCP
func InitLogstash(addr string, serviceName string, level string) error {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return err
	}

	log = build(zerolog.MultiLevelWriter(os.Stdout, conn), serviceName, level)
	return nil
}

func build(w io.Writer, serviceName string, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}

// Logger возвращает текущий экземпляр для библиотек, ожидающих Printf-логгер
func Logger() *zerolog.Logger {
	return &log
}

func With() zerolog.Context {
	return log.With()
}

func WithFields(fields map[string]interface{}) zerolog.Logger {
	ctx := log.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return ctx.Logger()
}

// WithContext кладёт логгер запроса в контекст
func WithContext(ctx context.Context, l zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext возвращает логгер запроса или глобальный, если его нет
func FromContext(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return l
	}
	return log
}

// ForRun - логгер одного запуска загрузки каталога.
// Для запусков из HTTP сохраняет request_id запроса
func ForRun(ctx context.Context, runID, trigger string) zerolog.Logger {
	l := FromContext(ctx)
	return l.With().
		Str("run_id", runID).
		Str("trigger", trigger).
		Logger()
}

package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"

	"github.com/nDmitry/imagefeed/internal/entity"
)

var configured atomic.Pointer[slog.Logger]

var defaultLogger = sync.OnceValue(func() *slog.Logger {
	return NewLogger(os.Stdout, entity.LogConfig{})
})

// Logger returns the logger singleton
func Logger() *slog.Logger {
	if l := configured.Load(); l != nil {
		return l
	}

	return defaultLogger()
}

// Configure replaces the logger singleton according to cfg and makes it the slog default
func Configure(cfg entity.LogConfig) *slog.Logger {
	l := NewLogger(os.Stdout, cfg)

	configured.Store(l)
	slog.SetDefault(l)

	return l
}

// NewLogger builds a logger writing to w.
// Text format is used when requested or when w is a terminal, JSON otherwise.
func NewLogger(w io.Writer, cfg entity.LogConfig) *slog.Logger {
	level := parseLevel(cfg.Level)

	if cfg.Format == entity.LogFormatText || (cfg.Format == "" && isTerminal(w)) {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			NoColor:    !isTerminal(w),
		}))
	}

	baseHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	handler := &loggerHandler{handler: baseHandler}

	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && term.IsTerminal(int(f.Fd()))
}

type loggerHandler struct {
	handler slog.Handler
}

func (h *loggerHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *loggerHandler) Handle(ctx context.Context, r slog.Record) error {
	// Convert the time to UTC and truncate microseconds
	r.Time = r.Time.UTC().Truncate(time.Second)
	return h.handler.Handle(ctx, r)
}

func (h *loggerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &loggerHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *loggerHandler) WithGroup(name string) slog.Handler {
	return &loggerHandler{handler: h.handler.WithGroup(name)}
}

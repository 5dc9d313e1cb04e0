// Package log wraps slog with a component-scoped logger that travels through
// request contexts.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger is a slog.Logger bound to a component. The component is attached once,
// so rescoping replaces it rather than repeating the attribute.
type Logger struct {
	*slog.Logger
	base      *slog.Logger
	component string
}

// Config holds logger configuration. Handler wins over Output and Level when set.
type Config struct {
	Level     slog.Level
	Component string
	Handler   slog.Handler
	Output    io.Writer
}

func DefaultConfig() Config {
	return Config{Level: slog.LevelInfo, Component: ComponentApp}
}

// New builds a text logger writing to Output, stdout when unset.
func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		out := config.Output
		if out == nil {
			out = os.Stdout
		}
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: config.Level})
	}
	return bind(slog.New(handler), config.Component)
}

func bind(base *slog.Logger, component string) *Logger {
	l := base
	if component != "" {
		l = base.With(FieldComponent, component)
	}
	return &Logger{Logger: l, base: base, component: component}
}

// With adds attributes while keeping the component.
func (l *Logger) With(args ...any) *Logger {
	return bind(l.base.With(args...), l.component)
}

// WithComponent rescopes the logger to another component.
func (l *Logger) WithComponent(component string) *Logger {
	return bind(l.base, component)
}

func (l *Logger) Component() string {
	return l.component
}

// SetDefault routes plain slog calls made anywhere in the process through logger.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}

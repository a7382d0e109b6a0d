// Package oatmealzero adapts github.com/rs/zerolog to oatmeal.Logger,
// the zerolog-backed alternative to the default slog logger, grounded on
// the teacher pack's own zerolog/colorable/isatty combination.
package oatmealzero

import (
	"os"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Logger adapts a zerolog.Logger to oatmeal's narrow Debug/Info/Warn/Error
// interface.
type Logger struct {
	z zerolog.Logger
}

// New builds a Logger writing to stdout, colorized when stdout is a
// terminal (detected via go-isatty, rendered via go-colorable so ANSI
// codes still work on Windows consoles), plain otherwise — the same
// InitLogger shape the teacher pack's observability package uses.
func New(app string) *Logger {
	var out = os.Stdout
	var writer zerolog.ConsoleWriter
	if isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()) {
		writer = zerolog.ConsoleWriter{Out: colorable.NewColorable(out), TimeFormat: time.RFC3339}
	} else {
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: true}
	}
	z := zerolog.New(writer).With().Timestamp().Str("app", app).Logger()
	return &Logger{z: z}
}

// apply attaches args as alternating key/value pairs onto ev, matching
// slog's Debug/Info/Warn/Error(msg string, args ...any) calling
// convention so Logger is a drop-in swap for the default slog-backed
// implementation.
func apply(ev *zerolog.Event, args []any) *zerolog.Event {
	for i := 0; i+1 < len(args); i += 2 {
		key, _ := args[i].(string)
		if key == "" {
			continue
		}
		ev = ev.Interface(key, args[i+1])
	}
	return ev
}

// Debug implements oatmeal.Logger.
func (l *Logger) Debug(msg string, args ...any) { apply(l.z.Debug(), args).Msg(msg) }

// Info implements oatmeal.Logger.
func (l *Logger) Info(msg string, args ...any) { apply(l.z.Info(), args).Msg(msg) }

// Warn implements oatmeal.Logger.
func (l *Logger) Warn(msg string, args ...any) { apply(l.z.Warn(), args).Msg(msg) }

// Error implements oatmeal.Logger.
func (l *Logger) Error(msg string, args ...any) { apply(l.z.Error(), args).Msg(msg) }

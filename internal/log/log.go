// Package log provides steady's colored console logging.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

type LogLevel int8

const (
	// LogLevelErrOnly prints errors only.
	LogLevelErrOnly LogLevel = iota

	// LogLevelVerbose prints relevant events and errors.
	LogLevelVerbose

	// LogLevelDebug prints everything, including transition diagnostics.
	LogLevelDebug
)

const linePrefix = "🔄 "

var (
	lock   sync.Mutex
	level  LogLevel
	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
)

// SetLevel sets the global log level.
func SetLevel(l LogLevel) {
	lock.Lock()
	defer lock.Unlock()
	level = l
}

// Level returns the current global log level.
func Level() LogLevel {
	lock.Lock()
	defer lock.Unlock()
	return level
}

// SetOutput overrides the standard and error outputs. Intended for tests.
func SetOutput(stdout, stderr io.Writer) {
	lock.Lock()
	defer lock.Unlock()
	out, errOut = stdout, stderr
}

// Debugf prints a debug log line if the level is LogLevelDebug.
func Debugf(f string, v ...any) {
	lock.Lock()
	defer lock.Unlock()
	if level < LogLevelDebug {
		return
	}
	_, _ = fmt.Fprint(out, linePrefix)
	_, _ = fGrey.Fprint(out, "DEBUG: ")
	_, _ = fmt.Fprintf(out, f, v...)
	_, _ = fmt.Fprintln(out)
}

// Verbosef prints a log line if the level is LogLevelVerbose or higher.
func Verbosef(f string, v ...any) {
	lock.Lock()
	defer lock.Unlock()
	if level < LogLevelVerbose {
		return
	}
	_, _ = fmt.Fprint(out, linePrefix)
	_, _ = fmt.Fprintf(out, f, v...)
	_, _ = fmt.Fprintln(out)
}

// Errorf prints an error line regardless of the level.
func Errorf(f string, v ...any) {
	lock.Lock()
	defer lock.Unlock()
	_, _ = fmt.Fprint(errOut, linePrefix)
	_, _ = fRedBold.Fprint(errOut, "ERR: ")
	_, _ = fmt.Fprintf(errOut, f, v...)
	_, _ = fmt.Fprintln(errOut)
}

// Fatalf prints an error line and exits with code 1.
func Fatalf(f string, v ...any) {
	Errorf(f, v...)
	os.Exit(1)
}

// Handler is an [slog.Handler] producing the same colored console output
// as the package level functions. It backs the latch transition
// diagnostics.
type Handler struct {
	mu    *sync.Mutex
	out   io.Writer
	level slog.Leveler
	attrs []slog.Attr
}

var _ slog.Handler = (*Handler)(nil)

// NewHandler creates a colored [slog.Handler] writing to out.
func NewHandler(out io.Writer, level slog.Leveler) *Handler {
	return &Handler{mu: new(sync.Mutex), out: out, level: level}
}

// NewDebugLogger returns a logger for latch transition diagnostics,
// writing to the same output as the package level functions.
func NewDebugLogger() *slog.Logger {
	lock.Lock()
	defer lock.Unlock()
	return slog.New(NewHandler(out, slog.LevelDebug))
}

func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, _ = fmt.Fprint(h.out, linePrefix)
	switch {
	case r.Level >= slog.LevelError:
		_, _ = fRedBold.Fprint(h.out, "ERR: ")
	case r.Level >= slog.LevelWarn:
		_, _ = fYellowBold.Fprint(h.out, "WARN: ")
	case r.Level >= slog.LevelInfo:
	default: // Debug
		_, _ = fGrey.Fprint(h.out, "DEBUG: ")
	}
	_, _ = fmt.Fprint(h.out, r.Message)

	for _, a := range h.attrs {
		h.writeAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(a)
		return true
	})

	_, _ = fmt.Fprintln(h.out)
	return nil
}

func (h *Handler) writeAttr(a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	if d, ok := a.Value.Any().(time.Duration); ok {
		_, _ = fmt.Fprintf(h.out, " %s=%s",
			fBlue.Sprint(a.Key), fRedBold.Sprint(DurStr(d)))
		return
	}
	_, _ = fmt.Fprintf(h.out, " %s=%s",
		fBlue.Sprint(a.Key), fGreen.Sprint(a.Value.String()))
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{
		mu:    h.mu,
		out:   h.out,
		level: h.level,
		attrs: append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...),
	}
}

// WithGroup returns h unchanged, groups aren't used in steady's logs.
func (h *Handler) WithGroup(string) slog.Handler { return h }

// DurStr formats a duration in a human-friendly way.
func DurStr(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%.0fns", float64(d)/float64(time.Nanosecond))
	case d < time.Millisecond:
		return fmt.Sprintf("%.0fµs", float64(d)/float64(time.Microsecond))
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", float64(d)/float64(time.Second))
	}
	return d.String()
}

var (
	fRedBold    = color.New(color.FgHiRed, color.Bold)
	fYellowBold = color.New(color.FgHiYellow, color.Bold)
	fGreen      = color.New(color.FgGreen)
	fBlue       = color.New(color.FgBlue)
	fGrey       = color.New(color.FgHiBlack)
)

package log

import (
	"bytes"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDurStr(t *testing.T) {
	f := func(input time.Duration, expect string) {
		t.Helper()
		require.Equal(t, expect, DurStr(input))
	}

	f(time.Nanosecond, "1ns")
	f(999*time.Nanosecond, "999ns")
	f(time.Microsecond, "1µs")
	f(999*time.Microsecond, "999µs")
	f(time.Millisecond, "1.00ms")
	f(999*time.Millisecond, "999.00ms")
	f(time.Second, "1.00s")
	f(59*time.Second, "59.00s")
	f(time.Millisecond+560*time.Microsecond, "1.56ms")
	f(time.Minute+30*time.Second, "1m30s")
}

func TestLevels(t *testing.T) {
	var stdout, stderr bytes.Buffer
	SetOutput(&stdout, &stderr)
	defer SetOutput(os.Stdout, os.Stderr)
	defer SetLevel(LogLevelErrOnly)

	SetLevel(LogLevelErrOnly)
	Debugf("d%d", 1)
	Verbosef("v%d", 1)
	Errorf("e%d", 1)
	require.Zero(t, stdout.Len())
	require.Contains(t, stderr.String(), "e1")

	SetLevel(LogLevelVerbose)
	Debugf("d%d", 2)
	Verbosef("v%d", 2)
	require.NotContains(t, stdout.String(), "d2")
	require.Contains(t, stdout.String(), "v2")

	SetLevel(LogLevelDebug)
	Debugf("d%d", 3)
	require.Contains(t, stdout.String(), "d3")
}

func TestHandler(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewHandler(&buf, slog.LevelDebug))

	l.Debug("show scheduled", slog.Duration("delay", 300*time.Millisecond))
	require.Contains(t, buf.String(), "show scheduled")
	require.Contains(t, buf.String(), "300.00ms")

	buf.Reset()
	l.With(slog.Bool("busy", true)).Debug("forced")
	require.Contains(t, buf.String(), "forced")
	require.Contains(t, buf.String(), "busy")
}

func TestHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewHandler(&buf, slog.LevelInfo))

	l.Debug("invisible")
	require.Zero(t, buf.Len())

	l.Info("visible")
	require.Contains(t, buf.String(), "visible")
}

package cmdrun_test

import (
	"context"
	"testing"

	"github.com/okranz/steady/internal/cmdrun"

	"github.com/stretchr/testify/require"
)

func TestSh(t *testing.T) {
	t.Parallel()

	out, err := cmdrun.Sh(context.Background(), t.TempDir(), "echo ok")
	require.NoError(t, err)
	require.Equal(t, "ok\n", string(out))
}

func TestShExitCode1(t *testing.T) {
	t.Parallel()

	out, err := cmdrun.Sh(context.Background(), t.TempDir(),
		"echo broken; exit 1")
	require.ErrorIs(t, err, cmdrun.ErrExitCode1)
	require.Equal(t, "broken\n", string(out))
}

func TestShCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cmdrun.Sh(ctx, t.TempDir(), "sleep 10")
	require.Error(t, err)
	require.NotErrorIs(t, err, cmdrun.ErrExitCode1)
}

package filereg_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/okranz/steady/internal/filereg"

	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	path := filepath.Join(base, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main"), 0o644))

	r := filereg.New()

	{ // First sight counts as changed.
		changed, err := r.Changed(path)
		require.NoError(t, err)
		require.True(t, changed)
	}
	{ // Same content, not changed.
		changed, err := r.Changed(path)
		require.NoError(t, err)
		require.False(t, changed)
	}
	{ // Rewrite with identical content, still not changed.
		require.NoError(t, os.WriteFile(path, []byte("package main"), 0o644))
		changed, err := r.Changed(path)
		require.NoError(t, err)
		require.False(t, changed)
	}
	{ // Different content.
		require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))
		changed, err := r.Changed(path)
		require.NoError(t, err)
		require.True(t, changed)
	}
	{ // Forget makes the next sight count as changed again.
		r.Forget(path)
		changed, err := r.Changed(path)
		require.NoError(t, err)
		require.True(t, changed)
	}
}

func TestRegistryErrFileNotFound(t *testing.T) {
	t.Parallel()

	r := filereg.New()
	changed, err := r.Changed("non-existent_file")
	require.False(t, changed)
	require.ErrorIs(t, err, os.ErrNotExist)
}

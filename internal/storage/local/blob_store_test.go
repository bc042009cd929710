package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRequiresBaseDir(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.Error(t, err)
}

func TestPutObjectWritesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := New(Config{BaseDir: dir})
	require.NoError(t, err)

	uri, err := store.PutObject(context.Background(), "tasks/t1/normalized.json", "application/json", []byte(`[{"platform":"tiktok"}]`))
	require.NoError(t, err)
	require.Equal(t, "file://"+filepath.Join(dir, "tasks/t1/normalized.json"), uri)

	data, err := os.ReadFile(filepath.Join(dir, "tasks", "t1", "normalized.json"))
	require.NoError(t, err)
	require.Equal(t, `[{"platform":"tiktok"}]`, string(data))
}

func TestPutObjectRejectsTraversal(t *testing.T) {
	t.Parallel()

	store, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), "../outside.json", "", []byte("x"))
	require.Error(t, err)

	_, err = store.PutObject(context.Background(), "  ", "", []byte("x"))
	require.Error(t, err)
}

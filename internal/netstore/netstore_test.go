package netstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mapequation/infomap-go/pkg/compression"
)

func newTestStore(t *testing.T) *Store {
	b, err := newLocalBackend(t.TempDir())
	require.NoError(t, err)
	return NewWithBackend(b)
}

func TestStore_UploadResultThenFetchNetwork(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dir := t.TempDir()
	resultPath := filepath.Join(dir, "result.tree")
	require.NoError(t, os.WriteFile(resultPath, []byte("# tree\n1 1 node 1\n"), 0o644))

	require.NoError(t, store.UploadResult(ctx, "runs/job-1.tree", resultPath))

	fetchedPath := filepath.Join(dir, "fetched.tree")
	require.NoError(t, store.FetchNetwork(ctx, "runs/job-1.tree", fetchedPath))

	data, err := os.ReadFile(fetchedPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "node 1")
}

func TestStore_FetchNetwork_MissingKey(t *testing.T) {
	store := newTestStore(t)
	err := store.FetchNetwork(context.Background(), "missing", filepath.Join(t.TempDir(), "out.net"))
	require.Error(t, err)
}

func TestStore_UploadResult_StoresCompressedBytes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dir := t.TempDir()
	resultPath := filepath.Join(dir, "result.tree")
	raw := []byte(strings.Repeat("# tree\n1 1 node 1\n", 64))
	require.NoError(t, os.WriteFile(resultPath, raw, 0o644))

	require.NoError(t, store.UploadResult(ctx, "runs/job-2.tree", resultPath))

	stored, err := store.backend.Download(ctx, "runs/job-2.tree")
	require.NoError(t, err)
	defer stored.Close()
	packed, err := io.ReadAll(stored)
	require.NoError(t, err)

	require.Less(t, len(packed), len(raw), "uploaded bytes should be compressed, not a copy of the source file")
	require.Equal(t, compression.TypeGzip, compression.DetectType(packed))
}

package netstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapequation/infomap-go/pkg/config"
)

func TestNewLocalBackend(t *testing.T) {
	t.Run("CreateWithGivenPath", func(t *testing.T) {
		tempDir := t.TempDir()
		target := filepath.Join(tempDir, "data")

		b, err := newLocalBackend(target)
		require.NoError(t, err)
		require.NotNil(t, b)

		info, err := os.Stat(target)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("CreateWithEmptyPath", func(t *testing.T) {
		origDir, err := os.Getwd()
		require.NoError(t, err)
		defer os.Chdir(origDir)

		tempDir := t.TempDir()
		require.NoError(t, os.Chdir(tempDir))

		b, err := newLocalBackend("")
		require.NoError(t, err)
		assert.Equal(t, "./netstore-data", b.basePath)
	})
}

func TestLocalBackend_UploadDownload(t *testing.T) {
	tempDir := t.TempDir()
	b, err := newLocalBackend(tempDir)
	require.NoError(t, err)

	t.Run("UploadFromReader", func(t *testing.T) {
		content := []byte("test content for upload")
		require.NoError(t, b.Upload(context.Background(), "test/file.txt", bytes.NewReader(content)))

		data, err := os.ReadFile(filepath.Join(tempDir, "test", "file.txt"))
		require.NoError(t, err)
		assert.Equal(t, content, data)
	})

	t.Run("UploadWithCanceledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := b.Upload(ctx, "canceled.txt", bytes.NewReader([]byte("x")))
		assert.Error(t, err)
	})

	t.Run("DownloadExistingKey", func(t *testing.T) {
		content := []byte("download test content")
		path := filepath.Join(tempDir, "download", "test.txt")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, content, 0644))

		reader, err := b.Download(context.Background(), "download/test.txt")
		require.NoError(t, err)
		defer reader.Close()

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, content, data)
	})

	t.Run("DownloadMissingKey", func(t *testing.T) {
		_, err := b.Download(context.Background(), "missing.txt")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "key not found")
	})
}

func TestLocalBackend_DeleteAndExists(t *testing.T) {
	tempDir := t.TempDir()
	b, err := newLocalBackend(tempDir)
	require.NoError(t, err)

	path := filepath.Join(tempDir, "delete", "test.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("to delete"), 0644))

	exists, err := b.Exists(context.Background(), "delete/test.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, b.Delete(context.Background(), "delete/test.txt"))

	exists, err = b.Exists(context.Background(), "delete/test.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting an already-missing key is not an error.
	require.NoError(t, b.Delete(context.Background(), "delete/test.txt"))
}

func TestLocalBackend_GetURL(t *testing.T) {
	tempDir := t.TempDir()
	b, err := newLocalBackend(tempDir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(tempDir, "path/to/file.txt"), b.GetURL("path/to/file.txt"))
}

func TestNewBackend(t *testing.T) {
	t.Run("LocalType", func(t *testing.T) {
		tempDir := t.TempDir()
		b, err := newBackend(&config.StorageConfig{Type: "local", LocalPath: tempDir})
		require.NoError(t, err)
		_, ok := b.(*localBackend)
		assert.True(t, ok)
	})

	t.Run("UnknownTypeDefaultsToLocal", func(t *testing.T) {
		tempDir := t.TempDir()
		b, err := newBackend(&config.StorageConfig{Type: "unknown", LocalPath: tempDir})
		require.NoError(t, err)
		_, ok := b.(*localBackend)
		assert.True(t, ok)
	})

	t.Run("COSType", func(t *testing.T) {
		b, err := newBackend(&config.StorageConfig{
			Type:      "cos",
			Bucket:    "test-bucket",
			Region:    "ap-guangzhou",
			SecretID:  "test-id",
			SecretKey: "test-key",
		})
		require.NoError(t, err)
		_, ok := b.(*cosBackend)
		assert.True(t, ok)
	})
}

func TestNewCOSBackend_Validation(t *testing.T) {
	t.Run("MissingBucket", func(t *testing.T) {
		_, err := newCOSBackend(&cosBackendConfig{Region: "ap-guangzhou", SecretID: "id", SecretKey: "key"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket and region are required")
	})

	t.Run("MissingCredentials", func(t *testing.T) {
		_, err := newCOSBackend(&cosBackendConfig{Bucket: "b", Region: "ap-guangzhou"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "credentials are required")
	})

	t.Run("ValidConfig", func(t *testing.T) {
		b, err := newCOSBackend(&cosBackendConfig{Bucket: "b", Region: "ap-guangzhou", SecretID: "id", SecretKey: "key"})
		require.NoError(t, err)
		require.NotNil(t, b)
	})
}

func TestCOSBackend_GetURL(t *testing.T) {
	b, err := newCOSBackend(&cosBackendConfig{Bucket: "my-bucket", Region: "ap-guangzhou", SecretID: "id", SecretKey: "key"})
	require.NoError(t, err)

	assert.Equal(t, "https://my-bucket.cos.ap-guangzhou.myqcloud.com/path/to/file.txt", b.GetURL("path/to/file.txt"))
}

func TestValidateBackendConfig(t *testing.T) {
	t.Run("NilConfig", func(t *testing.T) {
		err := validateBackendConfig(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage config is nil")
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		err := validateBackendConfig(&config.StorageConfig{Type: "s3"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported storage type")
	})

	t.Run("COSMissingBucket", func(t *testing.T) {
		err := validateBackendConfig(&config.StorageConfig{Type: "cos", Region: "ap-guangzhou", SecretID: "id", SecretKey: "key"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "COS bucket is required")
	})

	t.Run("LocalMissingPath", func(t *testing.T) {
		err := validateBackendConfig(&config.StorageConfig{Type: "local"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "local storage path is required")
	})

	t.Run("ValidLocalConfig", func(t *testing.T) {
		err := validateBackendConfig(&config.StorageConfig{Type: "local", LocalPath: "/tmp/netstore"})
		assert.NoError(t, err)
	})
}

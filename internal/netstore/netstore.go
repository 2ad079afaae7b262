// Package netstore fetches network input files and uploads clustering
// result artifacts through an object storage backend (local disk or
// Tencent COS), so a job submitted by key rather than by local path can
// be run the same way by any worker in a pool.
package netstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mapequation/infomap-go/pkg/compression"
	"github.com/mapequation/infomap-go/pkg/config"
)

// Store fetches network files and uploads result artifacts by key,
// wrapping a storage backend with the two operations a clustering job
// actually needs.
type Store struct {
	backend  backend
	compress compression.Compressor
}

// New builds a Store from storage configuration. Result artifacts are
// compressed with the gzip default before upload; .tree/.ftree output is
// plain-text and compresses well, and every worker in a pool shares the
// same codec so a download never has to guess.
func New(cfg *config.StorageConfig) (*Store, error) {
	b, err := newBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("netstore: building storage backend: %w", err)
	}
	return &Store{backend: b, compress: compression.NewGzipCompressor(compression.LevelDefault)}, nil
}

// NewWithBackend builds a Store around an already-constructed backend,
// for tests or a backend wired up outside configuration.
func NewWithBackend(b backend) *Store {
	return &Store{backend: b, compress: compression.NewGzipCompressor(compression.LevelDefault)}
}

// FetchNetwork downloads the network file stored under key to a local
// path, so netreader can read it as a plain file. AutoDecompress detects
// whether the stored bytes are a compressed result re-ingested as input
// and transparently unwraps them; an operator-supplied network file is
// passed through unchanged.
func (s *Store) FetchNetwork(ctx context.Context, key, localPath string) error {
	exists, err := s.backend.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("netstore: checking %s: %w", key, err)
	}
	if !exists {
		return fmt.Errorf("netstore: network %q not found", key)
	}

	r, err := s.backend.Download(ctx, key)
	if err != nil {
		return fmt.Errorf("netstore: fetching %s: %w", key, err)
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("netstore: reading %s: %w", key, err)
	}
	data := raw
	isGzip := len(raw) >= 2 && raw[0] == 0x1f && raw[1] == 0x8b
	if isGzip || compression.DetectType(raw) == compression.TypeZstd {
		data, err = compression.AutoDecompress(raw)
		if err != nil {
			return fmt.Errorf("netstore: decompressing %s: %w", key, err)
		}
	}
	if err := os.WriteFile(localPath, data, 0644); err != nil {
		return fmt.Errorf("netstore: writing %s: %w", localPath, err)
	}
	return nil
}

// UploadResult compresses a local result artifact (.clu/.tree/.ftree) and
// uploads it under the given key.
func (s *Store) UploadResult(ctx context.Context, key, localPath string) error {
	raw, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("netstore: result file %s: %w", localPath, err)
	}
	packed, err := s.compress.Compress(raw)
	if err != nil {
		return fmt.Errorf("netstore: compressing %s: %w", localPath, err)
	}
	if err := s.backend.Upload(ctx, key, bytes.NewReader(packed)); err != nil {
		return fmt.Errorf("netstore: uploading %s: %w", key, err)
	}
	return nil
}

// ResultURL returns the URL a client can use to retrieve the uploaded
// result, if the backend supports one (COS does; local storage returns
// a bare path).
func (s *Store) ResultURL(key string) string {
	return s.backend.GetURL(key)
}

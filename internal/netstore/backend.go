package netstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/tencentyun/cos-go-sdk-v5"

	"github.com/mapequation/infomap-go/pkg/config"
)

// backend is the object-storage operation set a Store needs from either
// a local disk tree or a Tencent COS bucket.
type backend interface {
	Upload(ctx context.Context, key string, reader io.Reader) error
	UploadFile(ctx context.Context, key, localPath string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	DownloadFile(ctx context.Context, key, localPath string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	GetURL(key string) string
}

// newBackend builds a backend from storage configuration, defaulting to
// local disk when the type is empty or unrecognized.
func newBackend(cfg *config.StorageConfig) (backend, error) {
	if cfg != nil && cfg.Type != "cos" && cfg.Type != "local" {
		local := *cfg
		local.Type = "local"
		cfg = &local
	}
	if err := validateBackendConfig(cfg); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case "cos":
		return newCOSBackend(&cosBackendConfig{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Domain:    cfg.Domain,
			Scheme:    cfg.Scheme,
		})
	default:
		return newLocalBackend(cfg.LocalPath)
	}
}

func validateBackendConfig(cfg *config.StorageConfig) error {
	if cfg == nil {
		return fmt.Errorf("netstore: storage config is nil")
	}

	storageType := cfg.Type
	if storageType == "" {
		storageType = "local"
	}

	if storageType != "cos" && storageType != "local" {
		return fmt.Errorf("netstore: unsupported storage type: %s", cfg.Type)
	}

	if storageType == "cos" {
		if cfg.Bucket == "" {
			return fmt.Errorf("netstore: COS bucket is required")
		}
		if cfg.Region == "" {
			return fmt.Errorf("netstore: COS region is required")
		}
		if cfg.SecretID == "" || cfg.SecretKey == "" {
			return fmt.Errorf("netstore: COS credentials are required")
		}
	}

	if storageType == "local" && cfg.LocalPath == "" {
		return fmt.Errorf("netstore: local storage path is required")
	}

	return nil
}

// localBackend stores network and result files as plain files under a
// base directory, for single-machine runs and tests.
type localBackend struct {
	basePath string
}

func newLocalBackend(basePath string) (*localBackend, error) {
	if basePath == "" {
		basePath = "./netstore-data"
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("netstore: creating storage directory: %w", err)
	}
	return &localBackend{basePath: basePath}, nil
}

func (b *localBackend) fullPath(key string) string {
	return filepath.Join(b.basePath, key)
}

func (b *localBackend) Upload(ctx context.Context, key string, reader io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full := b.fullPath(key)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("netstore: creating directory: %w", err)
	}
	file, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("netstore: creating file: %w", err)
	}
	defer file.Close()
	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("netstore: writing file: %w", err)
	}
	return nil
}

func (b *localBackend) UploadFile(ctx context.Context, key, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("netstore: opening source file: %w", err)
	}
	defer src.Close()
	return b.Upload(ctx, key, src)
}

func (b *localBackend) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(b.fullPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("netstore: key not found: %s", key)
		}
		return nil, fmt.Errorf("netstore: opening file: %w", err)
	}
	return file, nil
}

func (b *localBackend) DownloadFile(ctx context.Context, key, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := b.Download(ctx, key)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("netstore: creating directory: %w", err)
	}
	dst, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("netstore: creating destination file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("netstore: copying file: %w", err)
	}
	return nil
}

func (b *localBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(b.fullPath(key)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("netstore: deleting file: %w", err)
	}
	return nil
}

func (b *localBackend) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(b.fullPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("netstore: checking file: %w", err)
	}
	return true, nil
}

func (b *localBackend) GetURL(key string) string {
	return b.fullPath(key)
}

// cosBackendConfig holds the Tencent COS connection details pulled out
// of config.StorageConfig.
type cosBackendConfig struct {
	Bucket    string
	Region    string
	SecretID  string
	SecretKey string
	Domain    string
	Scheme    string
}

// cosBackend stores network and result files in a Tencent Cloud Object
// Storage bucket, for workers that don't share a filesystem.
type cosBackend struct {
	client *cos.Client
	bucket string
	region string
	domain string
	scheme string
}

func newCOSBackend(cfg *cosBackendConfig) (*cosBackend, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("netstore: bucket and region are required for COS storage")
	}
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("netstore: credentials are required for COS storage")
	}

	domain := cfg.Domain
	if domain == "" {
		domain = "myqcloud.com"
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}

	bucketURL, err := url.Parse(fmt.Sprintf("%s://%s.cos.%s.%s", scheme, cfg.Bucket, cfg.Region, domain))
	if err != nil {
		return nil, fmt.Errorf("netstore: parsing bucket URL: %w", err)
	}
	serviceURL, err := url.Parse(fmt.Sprintf("%s://cos.%s.%s", scheme, cfg.Region, domain))
	if err != nil {
		return nil, fmt.Errorf("netstore: parsing service URL: %w", err)
	}

	client := cos.NewClient(&cos.BaseURL{
		BucketURL:  bucketURL,
		ServiceURL: serviceURL,
	}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
		},
	})

	return &cosBackend{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		domain: domain,
		scheme: scheme,
	}, nil
}

func (b *cosBackend) Upload(ctx context.Context, key string, reader io.Reader) error {
	if _, err := b.client.Object.Put(ctx, key, reader, nil); err != nil {
		return fmt.Errorf("netstore: uploading to COS: %w", err)
	}
	return nil
}

func (b *cosBackend) UploadFile(ctx context.Context, key, localPath string) error {
	if _, err := b.client.Object.PutFromFile(ctx, key, localPath, nil); err != nil {
		return fmt.Errorf("netstore: uploading file to COS: %w", err)
	}
	return nil
}

func (b *cosBackend) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := b.client.Object.Get(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("netstore: downloading from COS: %w", err)
	}
	return resp.Body, nil
}

func (b *cosBackend) DownloadFile(ctx context.Context, key, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("netstore: creating directory: %w", err)
	}
	if _, err := b.client.Object.GetToFile(ctx, key, localPath, nil); err != nil {
		return fmt.Errorf("netstore: downloading file from COS: %w", err)
	}
	return nil
}

func (b *cosBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.client.Object.Delete(ctx, key, nil); err != nil {
		return fmt.Errorf("netstore: deleting from COS: %w", err)
	}
	return nil
}

func (b *cosBackend) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := b.client.Object.IsExist(ctx, key)
	if err != nil {
		return false, fmt.Errorf("netstore: checking existence in COS: %w", err)
	}
	return ok, nil
}

func (b *cosBackend) GetURL(key string) string {
	return fmt.Sprintf("%s://%s.cos.%s.%s/%s", b.scheme, b.bucket, b.region, b.domain, key)
}

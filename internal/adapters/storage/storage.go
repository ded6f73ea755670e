// Package storage provides object storage adapters for feature sources and
// viewport presets.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jobrunner/mapview/internal/config"
	"github.com/jobrunner/mapview/internal/domain"
	"github.com/jobrunner/mapview/internal/ports/output"
)

// Filter selects the object keys a storage adapter lists.
type Filter func(key string) bool

// Extensions returns a filter matching keys by file extension, ignoring case.
func Extensions(exts ...string) Filter {
	return func(key string) bool {
		ext := strings.ToLower(filepath.Ext(key))
		for _, e := range exts {
			if ext == e {
				return true
			}
		}
		return false
	}
}

// Common filters.
var (
	GeoPackages = Extensions(".gpkg")
	Presets     = Extensions(".yaml", ".yml")
)

// New creates the storage adapter selected by cfg.Type, listing GeoPackages.
func New(ctx context.Context, cfg config.StorageConfig) (output.ObjectStorage, error) {
	switch output.StorageType(cfg.Type) {
	case output.StorageTypeLocal:
		return NewLocalStorage(cfg.LocalPath, GeoPackages), nil

	case output.StorageTypeS3:
		return NewS3Storage(ctx, S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		}, GeoPackages)

	case output.StorageTypeAzure:
		return NewAzureStorage(AzureConfig{
			Container:        cfg.Azure.Container,
			AccountName:      cfg.Azure.AccountName,
			AccountKey:       cfg.Azure.AccountKey,
			ConnectionString: cfg.Azure.ConnectionString,
			Prefix:           cfg.Azure.Prefix,
		}, GeoPackages)

	case output.StorageTypeHTTP:
		return NewHTTPStorage(HTTPConfig{
			BaseURL:   cfg.HTTP.BaseURL,
			IndexFile: cfg.HTTP.IndexFile,
			Timeout:   cfg.HTTP.Timeout,
			Username:  cfg.HTTP.Username,
			Password:  cfg.HTTP.Password,
		}, GeoPackages), nil

	default:
		return nil, &domain.ConfigError{Field: "storage.type", Message: fmt.Sprintf("unknown storage type: %s", cfg.Type)}
	}
}

// writeFile streams r into dest. The data is written to a temporary file in
// the destination directory and renamed, so readers never see a partial file.
func writeFile(dest string, r io.Reader) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// storageError wraps a backend failure so that callers can match
// domain.ErrStorageUnavailable.
func storageError(op, key string, err error) error {
	return &domain.StorageError{
		Operation: op,
		Key:       key,
		Err:       fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err),
	}
}

// joinKey prefixes key for remote backends.
func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return strings.TrimSuffix(prefix, "/") + "/" + key
}

// relativeKey strips prefix from a remote key.
func relativeKey(prefix, key string) string {
	rel := strings.TrimPrefix(key, prefix)
	return strings.TrimPrefix(rel, "/")
}

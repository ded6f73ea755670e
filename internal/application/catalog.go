package application

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jobrunner/mapview/internal/domain"
	"github.com/jobrunner/mapview/internal/ports/input"
	"github.com/jobrunner/mapview/internal/ports/output"
)

var _ input.SourceCatalog = (*SourceCatalog)(nil)

// SourceCatalog manages the GeoPackages available as feature sources.
type SourceCatalog struct {
	mu        sync.RWMutex
	packages  map[string]*domain.GeoPackage
	source    output.FeatureSource
	storage   output.ObjectStorage
	metrics   output.MetricsCollector
	logger    *slog.Logger
	localPath string
	loaded    atomic.Bool
}

// NewSourceCatalog creates a new source catalog.
func NewSourceCatalog(
	source output.FeatureSource,
	storage output.ObjectStorage,
	metrics output.MetricsCollector,
	logger *slog.Logger,
	localPath string,
) *SourceCatalog {
	return &SourceCatalog{
		packages:  make(map[string]*domain.GeoPackage),
		source:    source,
		storage:   storage,
		metrics:   metrics,
		logger:    logger,
		localPath: localPath,
	}
}

// LoadPackage opens the GeoPackage at path and registers it.
func (c *SourceCatalog) LoadPackage(ctx context.Context, path string) error {
	c.logger.Info("loading package", "path", path)

	pkg, err := c.source.Open(ctx, path)
	if err != nil {
		c.logger.Error("failed to open package", "path", path, "error", err)
		return err
	}
	pkg.LoadedAt = time.Now()

	c.mu.Lock()
	c.packages[pkg.ID] = pkg
	c.mu.Unlock()

	c.logger.Info("package loaded", "id", pkg.ID, "layers", len(pkg.Layers))
	return nil
}

// UnloadPackage closes and forgets a GeoPackage.
func (c *SourceCatalog) UnloadPackage(ctx context.Context, packageID string) error {
	c.logger.Info("unloading package", "id", packageID)

	if err := c.source.Close(ctx, packageID); err != nil {
		c.logger.Error("failed to close package", "id", packageID, "error", err)
		return err
	}

	c.mu.Lock()
	delete(c.packages, packageID)
	c.mu.Unlock()
	return nil
}

// ListPackages returns all registered GeoPackages ordered by ID.
func (c *SourceCatalog) ListPackages(_ context.Context) ([]domain.GeoPackage, error) {
	c.mu.RLock()
	packages := make([]domain.GeoPackage, 0, len(c.packages))
	for _, pkg := range c.packages {
		packages = append(packages, *pkg)
	}
	c.mu.RUnlock()

	sort.Slice(packages, func(i, j int) bool { return packages[i].ID < packages[j].ID })
	return packages, nil
}

// GetPackage returns a specific GeoPackage by ID.
func (c *SourceCatalog) GetPackage(_ context.Context, id string) (*domain.GeoPackage, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pkg, ok := c.packages[id]
	if !ok {
		return nil, domain.ErrPackageNotFound
	}
	return pkg, nil
}

// GetLayer returns a layer of a registered GeoPackage.
func (c *SourceCatalog) GetLayer(ctx context.Context, packageID, layer string) (domain.Layer, error) {
	pkg, err := c.GetPackage(ctx, packageID)
	if err != nil {
		return domain.Layer{}, err
	}
	l, ok := pkg.GetLayer(layer)
	if !ok {
		return domain.Layer{}, domain.ErrLayerNotFound
	}
	return *l, nil
}

// PackageCount returns the number of loaded packages.
func (c *SourceCatalog) PackageCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.packages)
}

// Loaded reports whether LoadAll has completed at least once.
func (c *SourceCatalog) Loaded() bool {
	return c.loaded.Load()
}

// LoadAll copies every GeoPackage from storage into the local cache and
// opens it. Individual failures are logged and skipped.
func (c *SourceCatalog) LoadAll(ctx context.Context) error {
	defer c.loaded.Store(true)

	if c.storage == nil {
		return nil
	}

	c.logger.Info("loading all packages from storage")

	start := time.Now()
	objects, err := c.storage.List(ctx)
	c.metrics.ObserveStorageDuration("list", time.Since(start))
	c.metrics.IncStorageOperations("list", err == nil)
	if err != nil {
		return &domain.StorageError{Operation: "list", Err: err}
	}

	for _, obj := range objects {
		localPath := filepath.Join(c.localPath, obj.Key)

		start := time.Now()
		err := c.storage.Download(ctx, obj.Key, localPath)
		c.metrics.ObserveStorageDuration("download", time.Since(start))
		c.metrics.IncStorageOperations("download", err == nil)
		if err != nil {
			c.logger.Error("failed to download package", "key", obj.Key, "error", err)
			continue
		}

		if err := c.LoadPackage(ctx, localPath); err != nil {
			c.logger.Error("failed to load package", "path", localPath, "error", err)
		}
	}

	return nil
}

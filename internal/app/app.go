// Package app provides application initialization and wiring.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jobrunner/mapview/internal/adapters/geopackage"
	httpAdapter "github.com/jobrunner/mapview/internal/adapters/http"
	"github.com/jobrunner/mapview/internal/adapters/index"
	"github.com/jobrunner/mapview/internal/adapters/metrics"
	"github.com/jobrunner/mapview/internal/adapters/preset"
	"github.com/jobrunner/mapview/internal/adapters/storage"
	tlsAdapter "github.com/jobrunner/mapview/internal/adapters/tls"
	"github.com/jobrunner/mapview/internal/adapters/watcher"
	"github.com/jobrunner/mapview/internal/application"
	"github.com/jobrunner/mapview/internal/config"
	"github.com/jobrunner/mapview/internal/ports/output"
)

// App holds all application components.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Storage       output.ObjectStorage
	Repository    *geopackage.Repository
	Reprojector   *geopackage.Reprojector
	Catalog       *application.SourceCatalog
	Sessions      *application.SessionRegistry
	Extent        *application.ExtentService
	HealthService *application.HealthService
	HTTPServer    *httpAdapter.Server
	TLS           *tlsAdapter.Manager
	Metrics       *metrics.Collector

	PackageWatcher *watcher.Watcher
	PresetWatcher  *watcher.Watcher
	presetStore    *storage.LocalStorage
	presetDir      string
}

// New creates and initializes a new application.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	var metricsCollector output.MetricsCollector = &output.NoOpMetrics{}
	if cfg.Metrics.Enabled {
		app.Metrics = metrics.NewCollector("mapview")
		metricsCollector = app.Metrics
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	app.Storage = store

	app.Repository = geopackage.NewRepository()

	// Without SpatiaLite every reference system change fails and leaves
	// the viewports unchanged.
	var reprojector output.EnvelopeReprojector
	if r, err := geopackage.NewReprojector(ctx); err != nil {
		logger.Warn("reprojection unavailable", "error", err)
	} else {
		app.Reprojector = r
		reprojector = r
	}

	app.Catalog = application.NewSourceCatalog(
		app.Repository,
		app.Storage,
		metricsCollector,
		logger,
		cfg.Storage.LocalPath,
	)

	app.Sessions = application.NewSessionRegistry(
		reprojector,
		metricsCollector,
		logger,
		application.SessionConfig{
			DefaultSRID: cfg.Viewport.DefaultSRID,
			Screen:      cfg.Viewport.Screen(),
			EventLimit:  cfg.Viewport.EventLimit,
		},
	)

	app.Extent = application.NewExtentService(
		app.Catalog,
		app.Repository,
		reprojector,
		func() output.FeatureIndex { return index.NewRTree() },
		metricsCollector,
		logger,
	)

	app.HealthService = application.NewHealthService(app.Catalog, app.Sessions)

	app.HTTPServer = httpAdapter.NewServer(
		cfg.Server,
		app.Sessions,
		app.Catalog,
		app.Extent,
		app.HealthService,
		app.Metrics,
		cfg.Metrics,
		logger,
	)

	app.TLS, err = tlsAdapter.NewManager(cfg.TLS, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing TLS: %w", err)
	}

	// Hot-reload of GeoPackages
	if output.StorageType(cfg.Storage.Type) == output.StorageTypeLocal {
		w, err := watcher.New(
			watcher.Config{
				Paths:    []string{cfg.Storage.LocalPath},
				Debounce: cfg.Viewport.Debounce,
				Match:    storage.GeoPackages,
			},
			app.handlePackageEvent,
			logger,
		)
		if err != nil {
			logger.Warn("failed to initialize package watcher", "error", err)
		} else {
			app.PackageWatcher = w
		}
	}

	// Hot-reload of viewport presets
	if dir := cfg.Viewport.PresetsDir; dir != "" {
		app.presetDir = dir
		app.presetStore = storage.NewLocalStorage(dir, storage.Presets)

		w, err := watcher.New(
			watcher.Config{
				Paths:    []string{dir},
				Debounce: cfg.Viewport.Debounce,
				Match:    storage.Presets,
			},
			app.handlePresetEvent,
			logger,
		)
		if err != nil {
			logger.Warn("failed to initialize preset watcher", "error", err)
		} else {
			app.PresetWatcher = w
		}
	}

	return app, nil
}

// Start loads feature sources and presets, starts the watchers and serves
// the API until the server is shut down.
func (a *App) Start(ctx context.Context) error {
	if err := a.Catalog.LoadAll(ctx); err != nil {
		a.Logger.Warn("failed to load packages", "error", err)
	}

	a.applyPresets(ctx)

	for _, w := range []*watcher.Watcher{a.PackageWatcher, a.PresetWatcher} {
		if w == nil {
			continue
		}
		if err := w.Start(ctx); err != nil {
			a.Logger.Warn("failed to start file watcher", "error", err)
		}
	}

	if err := a.TLS.ManageCertificates(ctx); err != nil {
		return err
	}
	return a.TLS.Serve(a.HTTPServer.HTTPServer())
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	for _, w := range []*watcher.Watcher{a.PackageWatcher, a.PresetWatcher} {
		if w != nil {
			_ = w.Stop()
		}
	}

	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		a.Logger.Error("HTTP server shutdown error", "error", err)
	}

	packages, _ := a.Catalog.ListPackages(ctx)
	for _, pkg := range packages {
		if err := a.Catalog.UnloadPackage(ctx, pkg.ID); err != nil {
			a.Logger.Error("failed to unload package", "id", pkg.ID, "error", err)
		}
	}

	if a.Reprojector != nil {
		if err := a.Reprojector.Close(); err != nil {
			a.Logger.Error("failed to close reprojector", "error", err)
		}
	}

	return nil
}

// applyPresets applies every preset found in the presets directory.
func (a *App) applyPresets(ctx context.Context) {
	if a.presetStore == nil {
		return
	}

	presets, errs := preset.LoadAll(ctx, a.presetStore)
	for _, err := range errs {
		a.Logger.Warn("skipping preset", "error", err)
	}
	for _, p := range presets {
		if _, err := a.Sessions.ApplyPreset(ctx, p); err != nil {
			a.Logger.Warn("failed to apply preset", "preset", p.Name, "error", err)
		}
	}
}

// handlePackageEvent keeps the catalog in sync with the local package
// directory.
func (a *App) handlePackageEvent(ctx context.Context, event watcher.Event) error {
	a.Logger.Info("package file event", "path", event.Path, "operation", event.Operation.String())

	packageID := geopackage.DerivePackageID(event.Path)
	switch event.Operation {
	case watcher.OpCreate, watcher.OpModify:
		a.Extent.DropIndexes(packageID)
		return a.Catalog.LoadPackage(ctx, event.Path)

	case watcher.OpDelete:
		a.Extent.DropIndexes(packageID)
		if err := a.Catalog.UnloadPackage(ctx, packageID); err != nil {
			a.Logger.Warn("failed to unload deleted package", "id", packageID, "error", err)
		}
	}
	return nil
}

// handlePresetEvent re-applies a changed preset to the session named after
// it. Sessions of deleted presets are kept.
func (a *App) handlePresetEvent(ctx context.Context, event watcher.Event) error {
	if event.Operation == watcher.OpDelete {
		a.Logger.Info("preset removed", "path", event.Path)
		return nil
	}

	key, err := a.presetKey(event.Path)
	if err != nil {
		return err
	}
	p, err := preset.LoadFile(ctx, a.presetStore, key)
	if err != nil {
		return fmt.Errorf("loading preset %s: %w", key, err)
	}

	session, err := a.Sessions.ApplyPreset(ctx, p)
	if err != nil {
		return err
	}
	a.Logger.Info("preset reloaded", "preset", p.Name, "session", session.ID)
	return nil
}

// presetKey returns the storage key of a preset file below the presets
// directory.
func (a *App) presetKey(path string) (string, error) {
	base, err := filepath.Abs(a.presetDir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jobrunner/mapview/internal/domain"
	"github.com/jobrunner/mapview/internal/ports/output"
)

// ExtentService computes layer bounds from feature sources and relates
// them to viewports.
type ExtentService struct {
	catalog     *SourceCatalog
	source      output.FeatureSource
	reprojector output.EnvelopeReprojector
	newIndex    func() output.FeatureIndex
	metrics     output.MetricsCollector
	logger      *slog.Logger

	mu      sync.Mutex
	indexes map[string]output.FeatureIndex
}

// NewExtentService creates a new extent service. newIndex may be nil, in
// which case VisibleFeatures is unavailable.
func NewExtentService(
	catalog *SourceCatalog,
	source output.FeatureSource,
	reprojector output.EnvelopeReprojector,
	newIndex func() output.FeatureIndex,
	metrics output.MetricsCollector,
	logger *slog.Logger,
) *ExtentService {
	return &ExtentService{
		catalog:     catalog,
		source:      source,
		reprojector: reprojector,
		newIndex:    newIndex,
		metrics:     metrics,
		logger:      logger,
		indexes:     make(map[string]output.FeatureIndex),
	}
}

// LayerBounds scans every feature of a layer and returns the total bounds.
// A layer without features yields an empty envelope in the layer's SRID.
func (s *ExtentService) LayerBounds(ctx context.Context, packageID, layerName string) (domain.Envelope, error) {
	layer, err := s.catalog.GetLayer(ctx, packageID, layerName)
	if err != nil {
		return domain.Envelope{}, err
	}

	start := time.Now()
	acc := domain.NewBoundsAccumulator(layer.SRID)
	err = s.source.ScanFeatures(ctx, packageID, layer.Name, func(f domain.Feature) error {
		acc.Add(f)
		return nil
	})
	s.metrics.ObserveScanDuration(layer.Name, time.Since(start))
	if err != nil {
		return domain.Envelope{}, &domain.ScanError{PackageID: packageID, Layer: layer.Name, Err: err}
	}

	s.logger.Debug("layer bounds scanned",
		"package", packageID,
		"layer", layer.Name,
		"features", acc.Count(),
		"bounds", acc.Bounds().String(),
	)
	return acc.Bounds(), nil
}

// FitToLayer sets the viewport bounds to the extent of a layer. The layer
// bounds are reprojected (strictly) into the viewport's reference system
// when the two differ. It returns the corrected viewport bounds.
func (s *ExtentService) FitToLayer(ctx context.Context, vp *Viewport, packageID, layerName string) (domain.Envelope, error) {
	bounds, err := s.LayerBounds(ctx, packageID, layerName)
	if err != nil {
		return domain.Envelope{}, err
	}
	if bounds.IsEmpty() {
		return domain.Envelope{}, &domain.ValidationError{
			Field:      "layer",
			Value:      layerName,
			Constraint: "non-empty extent",
			Message:    "layer has no features to fit",
		}
	}

	target := vp.CoordinateReferenceSystem()
	if bounds.SRID != target {
		bounds, err = s.reproject(ctx, bounds, target, false)
		if err != nil {
			return domain.Envelope{}, err
		}
	}

	if err := vp.SetBounds(&bounds); err != nil {
		return domain.Envelope{}, err
	}
	return vp.Bounds(), nil
}

// IndexLayer loads all feature bounds of a layer into a fresh spatial index
// and returns the number of indexed features.
func (s *ExtentService) IndexLayer(ctx context.Context, packageID, layerName string) (int, error) {
	if s.newIndex == nil {
		return 0, fmt.Errorf("feature index: %w", domain.ErrUnsupported)
	}

	layer, err := s.catalog.GetLayer(ctx, packageID, layerName)
	if err != nil {
		return 0, err
	}

	idx := s.newIndex()
	start := time.Now()
	err = s.source.ScanFeatures(ctx, packageID, layer.Name, func(f domain.Feature) error {
		f.Bounds.SRID = layer.SRID
		idx.Insert(f)
		return nil
	})
	s.metrics.ObserveScanDuration(layer.Name, time.Since(start))
	if err != nil {
		return 0, &domain.ScanError{PackageID: packageID, Layer: layer.Name, Err: err}
	}

	s.mu.Lock()
	s.indexes[indexKey(packageID, layer.Name)] = idx
	s.mu.Unlock()

	s.logger.Info("layer indexed", "package", packageID, "layer", layer.Name, "features", idx.Size())
	return idx.Size(), nil
}

// VisibleFeatures returns the features of a layer intersecting the current
// viewport bounds. The layer is indexed on first use.
func (s *ExtentService) VisibleFeatures(ctx context.Context, vp *Viewport, packageID, layerName string) ([]domain.Feature, error) {
	layer, err := s.catalog.GetLayer(ctx, packageID, layerName)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	idx, ok := s.indexes[indexKey(packageID, layer.Name)]
	s.mu.Unlock()
	if !ok {
		if _, err := s.IndexLayer(ctx, packageID, layer.Name); err != nil {
			return nil, err
		}
		s.mu.Lock()
		idx = s.indexes[indexKey(packageID, layer.Name)]
		s.mu.Unlock()
	}

	bounds := vp.Bounds()
	if bounds.IsEmpty() {
		return nil, nil
	}
	if bounds.SRID != layer.SRID {
		bounds, err = s.reproject(ctx, bounds, layer.SRID, true)
		if err != nil {
			return nil, err
		}
	}
	return idx.Search(bounds), nil
}

// DropIndexes forgets all spatial indexes of a package.
func (s *ExtentService) DropIndexes(packageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := packageID + "/"
	for key := range s.indexes {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(s.indexes, key)
		}
	}
}

func (s *ExtentService) reproject(ctx context.Context, env domain.Envelope, srid int, lenient bool) (domain.Envelope, error) {
	if s.reprojector == nil {
		s.logger.Debug("no reprojector configured", "from_srid", env.SRID, "to_srid", srid)
		return domain.Envelope{}, &domain.ReprojectionError{
			SourceSRID: env.SRID,
			TargetSRID: srid,
			Err:        domain.ErrUnsupportedProjection,
		}
	}

	out, err := s.reprojector.Reproject(ctx, env, srid, lenient)
	s.metrics.IncReprojections(err == nil)
	if err != nil {
		s.logger.Warn("bounds reprojection failed", "from_srid", env.SRID, "to_srid", srid, "error", err)
		return domain.Envelope{}, &domain.ReprojectionError{SourceSRID: env.SRID, TargetSRID: srid, Err: err}
	}
	return out.WithSRID(srid), nil
}

func indexKey(packageID, layer string) string {
	return packageID + "/" + layer
}

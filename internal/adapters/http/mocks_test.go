package http

import (
	"context"
	"fmt"

	"github.com/jobrunner/mapview/internal/domain"
)

// mockSource serves a single GeoPackage with fixed features.
type mockSource struct {
	pkg      domain.GeoPackage
	features map[string][]domain.Feature
}

func newMockSource() *mockSource {
	return &mockSource{
		pkg: domain.GeoPackage{
			ID:   "roads",
			Name: "roads",
			Path: "/data/roads.gpkg",
			Layers: []domain.Layer{
				{Name: "streets", GeometryType: "LINESTRING", SRID: domain.SRIDWGS84, FeatureCount: 3},
				{Name: "empty", GeometryType: "POINT", SRID: domain.SRIDWGS84},
			},
		},
		features: map[string][]domain.Feature{
			"streets": {
				{ID: 1, LayerName: "streets", GeometryType: "LINESTRING", Bounds: domain.NewEnvelope(0, 0, 10, 10, 0)},
				{ID: 2, LayerName: "streets", GeometryType: "LINESTRING", Bounds: domain.NewEnvelope(40, 10, 60, 20, 0)},
				{ID: 3, LayerName: "streets", GeometryType: "LINESTRING", Bounds: domain.NewEnvelope(90, 40, 100, 50, 0)},
			},
		},
	}
}

func (m *mockSource) Open(_ context.Context, _ string) (*domain.GeoPackage, error) {
	pkg := m.pkg
	return &pkg, nil
}

func (m *mockSource) Close(_ context.Context, _ string) error {
	return nil
}

func (m *mockSource) GetLayers(_ context.Context, _ string) ([]domain.Layer, error) {
	return m.pkg.Layers, nil
}

func (m *mockSource) ScanFeatures(_ context.Context, _, layer string, fn func(domain.Feature) error) error {
	for _, f := range m.features[layer] {
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// mockReprojector scales coordinates by 1000 into EPSG:3857 and back, and
// knows no other systems.
type mockReprojector struct{}

func (mockReprojector) Reproject(_ context.Context, env domain.Envelope, target int, _ bool) (domain.Envelope, error) {
	switch {
	case env.SRID == domain.SRIDWGS84 && target == domain.SRIDWebMercator:
		return domain.NewEnvelope(env.MinX*1000, env.MinY*1000, env.MaxX*1000, env.MaxY*1000, target), nil
	case env.SRID == domain.SRIDWebMercator && target == domain.SRIDWGS84:
		return domain.NewEnvelope(env.MinX/1000, env.MinY/1000, env.MaxX/1000, env.MaxY/1000, target), nil
	default:
		return domain.Envelope{}, fmt.Errorf("EPSG:%d: %w", target, domain.ErrUnsupportedProjection)
	}
}

func (mockReprojector) IsSupported(_ context.Context, source, target int) bool {
	return (source == domain.SRIDWGS84 || source == domain.SRIDWebMercator) &&
		(target == domain.SRIDWGS84 || target == domain.SRIDWebMercator)
}

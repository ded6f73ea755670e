package output

import (
	"context"

	"github.com/jobrunner/mapview/internal/domain"
)

// FeatureSource defines the secondary port for reading feature records.
type FeatureSource interface {
	// Open opens a GeoPackage file and returns its metadata.
	Open(ctx context.Context, path string) (*domain.GeoPackage, error)

	// Close closes a GeoPackage connection.
	Close(ctx context.Context, packageID string) error

	// GetLayers returns all layers in a GeoPackage.
	GetLayers(ctx context.Context, packageID string) ([]domain.Layer, error)

	// ScanFeatures calls fn for every feature of a layer, in storage order.
	// Iteration stops at the first error returned by fn.
	ScanFeatures(ctx context.Context, packageID, layer string, fn func(domain.Feature) error) error
}

// EnvelopeReprojector defines the secondary port for reference system
// transformations. It is treated as an opaque service by the viewport.
type EnvelopeReprojector interface {
	// Reproject transforms env into targetSRID. With lenient set the
	// service may fall back to best-effort results instead of failing
	// on unregistered systems.
	Reproject(ctx context.Context, env domain.Envelope, targetSRID int, lenient bool) (domain.Envelope, error)

	// IsSupported checks if a transformation is supported.
	IsSupported(ctx context.Context, sourceSRID, targetSRID int) bool
}

// FeatureIndex defines the secondary port for spatial lookups of features.
type FeatureIndex interface {
	// Insert adds features to the index.
	Insert(features ...domain.Feature)

	// Search returns the features whose bounds intersect env.
	Search(env domain.Envelope) []domain.Feature

	// Size returns the number of indexed features.
	Size() int
}

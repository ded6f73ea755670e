// Package input defines the primary/driving ports of the application.
package input

import (
	"context"

	"github.com/jobrunner/mapview/internal/domain"
)

// SourceCatalog defines the primary port for GeoPackage management.
type SourceCatalog interface {
	// ListPackages returns all registered GeoPackages.
	ListPackages(ctx context.Context) ([]domain.GeoPackage, error)

	// GetPackage returns a specific GeoPackage by ID.
	GetPackage(ctx context.Context, id string) (*domain.GeoPackage, error)
}

// HealthChecker defines the primary port for health checks.
type HealthChecker interface {
	// IsHealthy returns true if the service is healthy.
	IsHealthy(ctx context.Context) bool

	// IsReady returns true if the service is ready to accept requests.
	IsReady(ctx context.Context) bool

	// GetHealthDetails returns detailed health information.
	GetHealthDetails(ctx context.Context) HealthDetails
}

// HealthDetails contains detailed health information.
type HealthDetails struct {
	Healthy        bool              // Overall health status
	Ready          bool              // Ready to accept requests
	PackagesLoaded int               // Number of loaded packages
	SessionsActive int               // Number of live viewport sessions
	Components     map[string]string // Component statuses
}

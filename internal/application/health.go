package application

import (
	"context"

	"github.com/jobrunner/mapview/internal/ports/input"
)

var _ input.HealthChecker = (*HealthService)(nil)

// HealthService provides health check functionality.
type HealthService struct {
	catalog  *SourceCatalog
	sessions *SessionRegistry
}

// NewHealthService creates a new health service.
func NewHealthService(catalog *SourceCatalog, sessions *SessionRegistry) *HealthService {
	return &HealthService{
		catalog:  catalog,
		sessions: sessions,
	}
}

// IsHealthy returns true if the service is healthy.
func (s *HealthService) IsHealthy(_ context.Context) bool {
	return true // Basic health check
}

// IsReady returns true once the initial source load has finished.
func (s *HealthService) IsReady(_ context.Context) bool {
	return s.catalog == nil || s.catalog.Loaded()
}

// GetHealthDetails returns detailed health information.
func (s *HealthService) GetHealthDetails(ctx context.Context) input.HealthDetails {
	details := input.HealthDetails{
		Healthy:    s.IsHealthy(ctx),
		Ready:      s.IsReady(ctx),
		Components: map[string]string{},
	}

	if s.catalog != nil {
		details.PackagesLoaded = s.catalog.PackageCount()
		details.Components["catalog"] = "ok"
		if !s.catalog.Loaded() {
			details.Components["catalog"] = "loading"
		}
	}
	if s.sessions != nil {
		details.SessionsActive = s.sessions.Count()
		details.Components["sessions"] = "ok"
	}

	return details
}

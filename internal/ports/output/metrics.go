package output

import (
	"time"

	"github.com/jobrunner/mapview/internal/domain"
)

// MetricsCollector defines the secondary port for metrics collection.
type MetricsCollector interface {
	// IncBoundsEvents increments the counter of dispatched change events.
	IncBoundsEvents(kind domain.EventType)

	// IncListenerFailures increments the counter of failed listener calls.
	IncListenerFailures()

	// IncReprojections counts reprojection attempts.
	IncReprojections(success bool)

	// SetSessionsActive sets the number of live viewport sessions.
	SetSessionsActive(count int)

	// ObserveScanDuration records how long a feature scan took.
	ObserveScanDuration(layer string, duration time.Duration)

	// IncStorageOperations increments storage operation counter.
	IncStorageOperations(operation string, success bool)

	// ObserveStorageDuration records storage operation duration.
	ObserveStorageDuration(operation string, duration time.Duration)
}

// NoOpMetrics is a no-op implementation of MetricsCollector.
type NoOpMetrics struct{}

// IncBoundsEvents implements MetricsCollector.
func (n *NoOpMetrics) IncBoundsEvents(_ domain.EventType) {}

// IncListenerFailures implements MetricsCollector.
func (n *NoOpMetrics) IncListenerFailures() {}

// IncReprojections implements MetricsCollector.
func (n *NoOpMetrics) IncReprojections(_ bool) {}

// SetSessionsActive implements MetricsCollector.
func (n *NoOpMetrics) SetSessionsActive(_ int) {}

// ObserveScanDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveScanDuration(_ string, _ time.Duration) {}

// IncStorageOperations implements MetricsCollector.
func (n *NoOpMetrics) IncStorageOperations(_ string, _ bool) {}

// ObserveStorageDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveStorageDuration(_ string, _ time.Duration) {}

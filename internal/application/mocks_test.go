package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jobrunner/mapview/internal/domain"
	"github.com/jobrunner/mapview/internal/ports/output"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockSource serves GeoPackages keyed by the base name of their path.
type mockSource struct {
	mu       sync.Mutex
	packages map[string]domain.GeoPackage
	features map[string][]domain.Feature
	openErr  error
	scanErr  error
	closed   []string
	scans    int
}

func newMockSource() *mockSource {
	return &mockSource{
		packages: map[string]domain.GeoPackage{
			"roads": {
				ID:   "roads",
				Name: "roads",
				Layers: []domain.Layer{
					{Name: "streets", GeometryType: "LINESTRING", SRID: domain.SRIDWGS84, FeatureCount: 3},
					{Name: "empty", GeometryType: "POINT", SRID: domain.SRIDWGS84},
					{Name: "mercator", GeometryType: "POINT", SRID: domain.SRIDWebMercator, FeatureCount: 2},
				},
			},
		},
		features: map[string][]domain.Feature{
			"streets": {
				{ID: 1, LayerName: "streets", Bounds: domain.NewEnvelope(0, 0, 10, 10, 0)},
				{ID: 2, LayerName: "streets", Bounds: domain.NewEnvelope(40, 10, 60, 20, 0)},
				{ID: 3, LayerName: "streets", Bounds: domain.NewEnvelope(90, 40, 100, 50, 0)},
			},
			"mercator": {
				{ID: 1, LayerName: "mercator", Bounds: domain.NewEnvelope(1000, 2000, 1000, 2000, 0)},
				{ID: 2, LayerName: "mercator", Bounds: domain.NewEnvelope(3000, 4000, 3000, 4000, 0)},
			},
		},
	}
}

func (m *mockSource) Open(_ context.Context, path string) (*domain.GeoPackage, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	id := strings.TrimSuffix(path[strings.LastIndex(path, "/")+1:], ".gpkg")
	pkg, ok := m.packages[id]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, domain.ErrPackageNotFound)
	}
	pkg.Path = path
	return &pkg, nil
}

func (m *mockSource) Close(_ context.Context, packageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = append(m.closed, packageID)
	return nil
}

func (m *mockSource) GetLayers(_ context.Context, packageID string) ([]domain.Layer, error) {
	pkg, ok := m.packages[packageID]
	if !ok {
		return nil, domain.ErrPackageNotFound
	}
	return pkg.Layers, nil
}

func (m *mockSource) ScanFeatures(_ context.Context, _, layer string, fn func(domain.Feature) error) error {
	m.mu.Lock()
	m.scans++
	m.mu.Unlock()

	if m.scanErr != nil {
		return m.scanErr
	}
	for _, f := range m.features[layer] {
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// mockStorage lists fixed objects and records downloads.
type mockStorage struct {
	objects     []output.StorageObject
	listErr     error
	downloadErr map[string]error
	downloaded  []string
}

func (m *mockStorage) List(_ context.Context) ([]output.StorageObject, error) {
	return m.objects, m.listErr
}

func (m *mockStorage) Download(_ context.Context, key, dest string) error {
	if err := m.downloadErr[key]; err != nil {
		return err
	}
	m.downloaded = append(m.downloaded, dest)
	return nil
}

func (m *mockStorage) GetReader(_ context.Context, _ string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (m *mockStorage) Exists(_ context.Context, _ string) (bool, error) {
	return true, nil
}

// mockReprojector scales coordinates by 1000 into EPSG:3857 and back.
// Any other target fails.
type mockReprojector struct {
	mu      sync.Mutex
	calls   int
	lenient []bool
	result  *domain.Envelope
	hook    func(call int) // runs before the result is computed
}

func (m *mockReprojector) Reproject(_ context.Context, env domain.Envelope, target int, lenient bool) (domain.Envelope, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.lenient = append(m.lenient, lenient)
	m.mu.Unlock()

	if m.hook != nil {
		m.hook(call)
	}

	if m.result != nil {
		return *m.result, nil
	}
	switch {
	case env.SRID == domain.SRIDWGS84 && target == domain.SRIDWebMercator:
		return domain.NewEnvelope(env.MinX*1000, env.MinY*1000, env.MaxX*1000, env.MaxY*1000, target), nil
	case env.SRID == domain.SRIDWebMercator && target == domain.SRIDWGS84:
		return domain.NewEnvelope(env.MinX/1000, env.MinY/1000, env.MaxX/1000, env.MaxY/1000, target), nil
	default:
		return domain.Envelope{}, fmt.Errorf("EPSG:%d: %w", target, domain.ErrUnsupportedProjection)
	}
}

func (m *mockReprojector) IsSupported(_ context.Context, source, target int) bool {
	return source != target
}

// mockIndex is a linear scan standing in for the R-tree.
type mockIndex struct {
	features []domain.Feature
}

func (m *mockIndex) Insert(features ...domain.Feature) {
	m.features = append(m.features, features...)
}

func (m *mockIndex) Search(env domain.Envelope) []domain.Feature {
	var out []domain.Feature
	for _, f := range m.features {
		b := f.Bounds
		if b.MinX <= env.MaxX && env.MinX <= b.MaxX && b.MinY <= env.MaxY && env.MinY <= b.MaxY {
			out = append(out, f)
		}
	}
	return out
}

func (m *mockIndex) Size() int {
	return len(m.features)
}

// recordingListener keeps every event it receives.
type recordingListener struct {
	events []domain.BoundsChangeEvent
	err    error
}

func (l *recordingListener) BoundsChanged(event domain.BoundsChangeEvent) error {
	l.events = append(l.events, event)
	return l.err
}

// panickingListener panics on every event.
type panickingListener struct{}

func (*panickingListener) BoundsChanged(domain.BoundsChangeEvent) error {
	panic("listener exploded")
}

// funcListener adapts a function. It is not comparable and therefore
// cannot be registered.
type funcListener func(domain.BoundsChangeEvent) error

func (f funcListener) BoundsChanged(event domain.BoundsChangeEvent) error {
	return f(event)
}

// callbackListener runs fn on every event.
type callbackListener struct {
	calls int
	fn    func()
}

func (l *callbackListener) BoundsChanged(domain.BoundsChangeEvent) error {
	l.calls++
	if l.fn != nil {
		l.fn()
	}
	return nil
}

// mockMetrics counts the calls the application layer makes.
type mockMetrics struct {
	output.NoOpMetrics
	mu               sync.Mutex
	events           map[domain.EventType]int
	listenerFailures int
	reprojections    map[bool]int
	sessions         int
	scans            int
	storageOps       map[string]int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{
		events:        map[domain.EventType]int{},
		reprojections: map[bool]int{},
		storageOps:    map[string]int{},
	}
}

func (m *mockMetrics) IncBoundsEvents(kind domain.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[kind]++
}

func (m *mockMetrics) IncListenerFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listenerFailures++
}

func (m *mockMetrics) IncReprojections(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reprojections[success]++
}

func (m *mockMetrics) SetSessionsActive(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = count
}

func (m *mockMetrics) ObserveScanDuration(_ string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans++
}

func (m *mockMetrics) IncStorageOperations(operation string, _ bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storageOps[operation]++
}

var errListener = errors.New("listener failed")

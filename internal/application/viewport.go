// Package application contains the application services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/jobrunner/mapview/internal/domain"
	"github.com/jobrunner/mapview/internal/ports/output"
)

// Viewport maps a rectangular display surface to a georeferenced region of
// interest and keeps both representations consistent.
//
// Whenever both the screen area and the world bounds are non-empty, the
// stored bounds have exactly the aspect ratio of the screen area. They are
// therefore usually larger than the bounds that were requested. Accessors
// return copies; no internal state is shared with callers or listeners.
type Viewport struct {
	mu            sync.RWMutex
	screen        domain.ScreenRect
	bounds        domain.Envelope
	worldToScreen domain.Transform
	screenToWorld domain.Transform
	version       uint64 // bumped on every bounds write

	listeners   listenerSet
	reprojector output.EnvelopeReprojector
	metrics     output.MetricsCollector
	logger      *slog.Logger
	defaultSRID int
}

// Option configures a Viewport.
type Option func(*Viewport)

// WithReprojector sets the service used for reference system changes.
func WithReprojector(r output.EnvelopeReprojector) Option {
	return func(v *Viewport) { v.reprojector = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Viewport) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m output.MetricsCollector) Option {
	return func(v *Viewport) {
		if m != nil {
			v.metrics = m
		}
	}
}

// WithDefaultSRID overrides the reference system of a fresh viewport.
func WithDefaultSRID(srid int) Option {
	return func(v *Viewport) {
		if srid > 0 {
			v.defaultSRID = srid
		}
	}
}

// NewViewport creates an empty viewport: empty screen area, empty bounds in
// the default reference system and identity transforms.
func NewViewport(opts ...Option) *Viewport {
	v := &Viewport{
		metrics:     &output.NoOpMetrics{},
		logger:      slog.Default(),
		defaultSRID: domain.DefaultSRID,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.setEmptyBounds()
	return v
}

// NewViewportWithBounds creates a viewport for the requested world bounds.
// A nil or empty envelope yields an empty viewport. Otherwise the bounds are
// stored as given and corrected once a screen area is set.
func NewViewportWithBounds(requested *domain.Envelope, opts ...Option) *Viewport {
	v := NewViewport(opts...)
	if requested == nil || requested.IsEmpty() {
		return v
	}
	// The screen area of a new viewport is always empty, so this only
	// stores the request.
	_ = v.setTransformsAndCorrectedBounds(v.normalize(*requested))
	return v
}

// IsEmpty reports whether the screen area or the world bounds are empty.
func (v *Viewport) IsEmpty() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.screen.IsEmpty() || v.bounds.IsEmpty()
}

// Bounds returns a copy of the current world bounds.
func (v *Viewport) Bounds() domain.Envelope {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.bounds
}

// SetBounds sets the display area in world coordinates. A nil or empty
// envelope clears the bounds, keeping the current reference system. A
// BOUNDS event carrying the actual (corrected) bounds is fired in all cases
// except a failed transform computation, which leaves the state untouched.
//
// Untagged requests are read in the current reference system. A request
// tagged with another system is taken as is and the viewport adopts that
// system; the event then reports CRSChanged. Nothing is reprojected.
func (v *Viewport) SetBounds(requested *domain.Envelope) error {
	v.mu.Lock()
	old := v.bounds
	if requested == nil || requested.IsEmpty() {
		v.storeBounds(domain.EmptyEnvelope(v.bounds.SRID))
		v.setDefaultTransforms()
	} else if err := v.setTransformsAndCorrectedBounds(v.normalize(*requested)); err != nil {
		v.mu.Unlock()
		return err
	}
	event := domain.BoundsChangeEvent{Type: domain.EventBounds, Old: old, New: v.bounds}
	v.mu.Unlock()

	v.fire(event)
	return nil
}

// ScreenArea returns a copy of the display area in screen coordinates.
func (v *Viewport) ScreenArea() domain.ScreenRect {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.screen
}

// SetScreenArea sets the display area in screen coordinates. A nil or
// empty rectangle resets the transforms to identity. Screen changes never
// fire events.
//
// When the previous screen area was empty the stored bounds get their
// first correction pass. Resizing a non-empty screen area keeps the current
// scale and world center, so only the visible extent changes.
func (v *Viewport) SetScreenArea(rect *domain.ScreenRect) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if rect == nil || rect.IsEmpty() {
		if rect == nil {
			v.screen = domain.ScreenRect{}
		} else {
			v.screen = *rect
		}
		v.setDefaultTransforms()
		return nil
	}

	old := v.screen
	v.screen = *rect

	var err error
	switch {
	case old.IsEmpty():
		err = v.setTransformsAndCorrectedBounds(v.bounds)
	case old != *rect && !v.bounds.IsEmpty():
		err = v.rescaleToScreen()
	}
	if err != nil {
		v.screen = old
	}
	return err
}

// CoordinateReferenceSystem returns the SRID of the world bounds.
func (v *Viewport) CoordinateReferenceSystem() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.bounds.SRID
}

// SetCoordinateReferenceSystem switches the viewport to srid, reprojecting
// the current bounds. Failures are logged at debug level and leave the
// viewport unchanged; use ChangeCoordinateReferenceSystem to observe them.
func (v *Viewport) SetCoordinateReferenceSystem(ctx context.Context, srid int) {
	if err := v.ChangeCoordinateReferenceSystem(ctx, srid); err != nil {
		v.logger.Debug("difficulty transforming viewport bounds",
			"target_srid", srid,
			"error", err,
		)
	}
}

// ChangeCoordinateReferenceSystem behaves like SetCoordinateReferenceSystem
// but returns the reprojection failure.
//
// Empty bounds simply adopt the new system without firing an event.
// Otherwise the bounds are reprojected (lenient), corrected against the
// screen area when there is one, and a CRS event is fired.
func (v *Viewport) ChangeCoordinateReferenceSystem(ctx context.Context, srid int) error {
	if srid <= 0 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidSRID, srid)
	}

	for {
		v.mu.RLock()
		current, version := v.bounds, v.version
		v.mu.RUnlock()

		if current.SRID == srid {
			return nil
		}
		if current.IsEmpty() {
			v.mu.Lock()
			if v.version == version {
				v.storeBounds(domain.EmptyEnvelope(srid))
				v.mu.Unlock()
				return nil
			}
			v.mu.Unlock()
			continue
		}

		// Reprojection runs unlocked. The result is installed only if the
		// bounds did not move meanwhile; otherwise start over.
		reprojected, err := v.reproject(ctx, current, srid)
		if err != nil {
			return err
		}

		v.mu.Lock()
		if v.version != version {
			v.mu.Unlock()
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}
		if err := v.setTransformsAndCorrectedBounds(reprojected); err != nil {
			v.mu.Unlock()
			return err
		}
		event := domain.BoundsChangeEvent{Type: domain.EventCRS, Old: current, New: v.bounds}
		v.mu.Unlock()

		v.fire(event)
		return nil
	}
}

// ApplyTransform maps the current bounds through t. The two diagonal
// corners are transformed and the result is normalized so that min <= max
// on each axis. The screen area and the transforms are left as they are.
func (v *Viewport) ApplyTransform(t domain.Transform) {
	v.mu.Lock()
	old := v.bounds
	x1, y1 := t.Apply(old.MinX, old.MinY)
	x2, y2 := t.Apply(old.MaxX, old.MaxY)
	v.storeBounds(domain.NewEnvelope(x1, y1, x2, y2, old.SRID))
	event := domain.BoundsChangeEvent{Type: domain.EventBounds, Old: old, New: v.bounds}
	v.mu.Unlock()

	v.fire(event)
}

// ScreenToWorld returns a copy of the screen to world transform, or the
// identity when the screen area is empty.
func (v *Viewport) ScreenToWorld() domain.Transform {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.screenToWorld
}

// WorldToScreen returns a copy of the world to screen transform, or the
// identity when the screen area is empty.
func (v *Viewport) WorldToScreen() domain.Transform {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.worldToScreen
}

// WorldToScreenPoint maps a world coordinate to screen space.
func (v *Viewport) WorldToScreenPoint(c domain.Coordinate) (float64, float64) {
	return v.WorldToScreen().Apply(c.X, c.Y)
}

// ScreenToWorldPoint maps a screen position to a world coordinate.
func (v *Viewport) ScreenToWorldPoint(x, y float64) domain.Coordinate {
	v.mu.RLock()
	defer v.mu.RUnlock()
	wx, wy := v.screenToWorld.Apply(x, y)
	return domain.NewCoordinate(wx, wy, v.bounds.SRID)
}

// Snapshot returns a consistent copy of the whole viewport state.
func (v *Viewport) Snapshot() domain.ViewportState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return domain.ViewportState{
		Screen:        v.screen,
		Bounds:        v.bounds,
		WorldToScreen: v.worldToScreen,
		ScreenToWorld: v.screenToWorld,
		Empty:         v.screen.IsEmpty() || v.bounds.IsEmpty(),
	}
}

// AddListener registers l. Duplicates (by identity) are ignored and false
// is returned.
func (v *Viewport) AddListener(l BoundsListener) bool {
	return v.listeners.add(l)
}

// RemoveListener unregisters l. It is safe to call from within a callback.
func (v *Viewport) RemoveListener(l BoundsListener) bool {
	return v.listeners.remove(l)
}

// ListenerCount returns the number of registered listeners.
func (v *Viewport) ListenerCount() int {
	return v.listeners.len()
}

// fire notifies all listeners registered at the time of the call, in
// registration order. It must be called without holding v.mu.
func (v *Viewport) fire(event domain.BoundsChangeEvent) {
	v.metrics.IncBoundsEvents(event.Type)
	for _, l := range v.listeners.snapshot() {
		v.notify(l, event)
	}
}

// notify isolates a single listener call.
func (v *Viewport) notify(l BoundsListener, event domain.BoundsChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			v.metrics.IncListenerFailures()
			v.logger.Debug("bounds listener panicked",
				"listener", fmt.Sprintf("%T", l),
				"event", event.Type,
				"panic", r,
			)
		}
	}()

	if err := l.BoundsChanged(event); err != nil {
		v.metrics.IncListenerFailures()
		v.logger.Debug("bounds listener failed",
			"listener", fmt.Sprintf("%T", l),
			"event", event.Type,
			"error", err,
		)
	}
}

// reproject delegates to the reference system service.
func (v *Viewport) reproject(ctx context.Context, env domain.Envelope, srid int) (domain.Envelope, error) {
	if v.reprojector == nil {
		v.metrics.IncReprojections(false)
		return domain.Envelope{}, &domain.ReprojectionError{
			SourceSRID: env.SRID,
			TargetSRID: srid,
			Err:        domain.ErrUnsupportedProjection,
		}
	}

	out, err := v.reprojector.Reproject(ctx, env, srid, true)
	if err == nil && out.IsEmpty() {
		err = fmt.Errorf("empty result: %w", domain.ErrReprojectionFailed)
	}
	if err != nil {
		v.metrics.IncReprojections(false)
		return domain.Envelope{}, &domain.ReprojectionError{
			SourceSRID: env.SRID,
			TargetSRID: srid,
			Err:        err,
		}
	}

	v.metrics.IncReprojections(true)
	return out.WithSRID(srid), nil
}

// normalize tags an untagged request with the current reference system.
func (v *Viewport) normalize(requested domain.Envelope) domain.Envelope {
	if requested.SRID <= 0 {
		requested.SRID = v.bounds.SRID
	}
	return requested
}

// setEmptyBounds resets the viewport to its initial state.
func (v *Viewport) setEmptyBounds() {
	v.storeBounds(domain.EmptyEnvelope(v.defaultSRID))
	v.screen = domain.ScreenRect{}
	v.setDefaultTransforms()
}

// setDefaultTransforms sets both transforms to the identity.
func (v *Viewport) setDefaultTransforms() {
	v.worldToScreen = domain.Identity()
	v.screenToWorld = domain.Identity()
}

// setTransformsAndCorrectedBounds installs transforms centering requested
// in the screen area and stores the corrected bounds. With an empty screen
// area the request is stored verbatim. The state is untouched on error.
func (v *Viewport) setTransformsAndCorrectedBounds(requested domain.Envelope) error {
	if requested.IsEmpty() {
		return nil
	}
	if v.screen.IsEmpty() {
		v.storeBounds(requested)
		return nil
	}

	fit, err := FitTransforms(v.screen, requested)
	if err != nil {
		return err
	}
	v.install(fit)
	return nil
}

// rescaleToScreen re-centers the current bounds in a resized screen area
// at the current scale.
func (v *Viewport) rescaleToScreen() error {
	if v.worldToScreen.IsIdentity() {
		return v.setTransformsAndCorrectedBounds(v.bounds)
	}

	fit, err := transformsForScale(v.screen, v.bounds, math.Abs(v.worldToScreen.ScaleX))
	if err != nil {
		return err
	}
	v.install(fit)
	return nil
}

func (v *Viewport) storeBounds(env domain.Envelope) {
	v.bounds = env
	v.version++
}

func (v *Viewport) install(fit Fit) {
	v.worldToScreen = fit.WorldToScreen
	v.screenToWorld = fit.ScreenToWorld
	v.storeBounds(fit.Bounds)
}

// Fit is the result of fitting world bounds into a screen area.
type Fit struct {
	Scale         float64
	WorldToScreen domain.Transform
	ScreenToWorld domain.Transform
	Bounds        domain.Envelope // Corrected bounds, same aspect ratio as the screen
}

// FitTransforms computes the transforms that center requested in screen
// with the more restrictive of the two axis scales, and the corrected world
// bounds exactly spanning screen. Both rectangles must be non-empty.
func FitTransforms(screen domain.ScreenRect, requested domain.Envelope) (Fit, error) {
	if screen.IsEmpty() || requested.IsEmpty() {
		return Fit{}, degenerate(screen, requested, "empty screen area or world bounds")
	}

	xscale := screen.Width / requested.Width()
	yscale := screen.Height / requested.Height()
	return transformsForScale(screen, requested, math.Min(xscale, yscale))
}

// transformsForScale builds the world to screen transform mapping the
// center of world onto the center of screen at the given scale. Screen Y
// grows downward, world Y upward.
func transformsForScale(screen domain.ScreenRect, world domain.Envelope, scale float64) (Fit, error) {
	if scale == 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return Fit{}, degenerate(screen, world, fmt.Sprintf("scale %v", scale))
	}

	center := world.Center()
	xoff := center.X*scale - screen.CenterX()
	yoff := center.Y*scale + screen.CenterY()

	worldToScreen := domain.NewTransform(scale, 0, 0, -scale, -xoff, yoff)
	screenToWorld, err := worldToScreen.Invert()
	if err != nil {
		return Fit{}, degenerate(screen, world, err.Error())
	}

	x0, y0 := screenToWorld.Apply(screen.MinX(), screen.MinY())
	x1, y1 := screenToWorld.Apply(screen.MaxX(), screen.MaxY())
	corrected := domain.NewEnvelope(x0, y0, x1, y1, world.SRID)
	if corrected.IsEmpty() || !screenToWorld.IsFinite() {
		return Fit{}, degenerate(screen, world, "corrected bounds collapsed")
	}

	return Fit{
		Scale:         scale,
		WorldToScreen: worldToScreen,
		ScreenToWorld: screenToWorld,
		Bounds:        corrected,
	}, nil
}

func degenerate(screen domain.ScreenRect, world domain.Envelope, detail string) error {
	return &domain.TransformError{
		Op:     "fit",
		Screen: &screen,
		World:  &world,
		Detail: detail,
		Err:    domain.ErrDegenerateTransform,
	}
}

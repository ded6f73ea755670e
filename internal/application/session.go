package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jobrunner/mapview/internal/domain"
	"github.com/jobrunner/mapview/internal/ports/output"
)

// Session is a named viewport owned by the session registry.
type Session struct {
	ID        string
	Name      string
	CreatedAt time.Time
	Viewport  *Viewport
	events    *EventRecorder
}

// Events returns the most recent change events of the session, oldest first.
func (s *Session) Events() []domain.BoundsChangeEvent {
	return s.events.Events()
}

// EventRecorder is a listener keeping the last events it received.
type EventRecorder struct {
	mu     sync.Mutex
	limit  int
	events []domain.BoundsChangeEvent
}

// NewEventRecorder creates a recorder keeping at most limit events.
func NewEventRecorder(limit int) *EventRecorder {
	if limit <= 0 {
		limit = 50
	}
	return &EventRecorder{limit: limit}
}

// BoundsChanged implements BoundsListener.
func (r *EventRecorder) BoundsChanged(event domain.BoundsChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
	if len(r.events) > r.limit {
		r.events = r.events[len(r.events)-r.limit:]
	}
	return nil
}

// Events returns a copy of the recorded events.
func (r *EventRecorder) Events() []domain.BoundsChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.BoundsChangeEvent, len(r.events))
	copy(out, r.events)
	return out
}

// SessionRegistry manages live viewport sessions.
type SessionRegistry struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	reprojector output.EnvelopeReprojector
	metrics     output.MetricsCollector
	logger      *slog.Logger
	cfg         SessionConfig
}

// SessionConfig holds defaults for new sessions.
type SessionConfig struct {
	DefaultSRID int
	Screen      domain.ScreenRect // Initial screen area (may be empty)
	EventLimit  int
}

// NewSessionRegistry creates a new session registry.
func NewSessionRegistry(
	reprojector output.EnvelopeReprojector,
	metrics output.MetricsCollector,
	logger *slog.Logger,
	cfg SessionConfig,
) *SessionRegistry {
	if cfg.DefaultSRID == 0 {
		cfg.DefaultSRID = domain.DefaultSRID
	}
	if cfg.EventLimit == 0 {
		cfg.EventLimit = 50
	}
	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SessionRegistry{
		sessions:    make(map[string]*Session),
		reprojector: reprojector,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
	}
}

// Create creates a session with a fresh viewport. An optional initial
// bounds request is stored and corrected against the configured screen.
func (r *SessionRegistry) Create(_ context.Context, name string, bounds *domain.Envelope) (*Session, error) {
	vp := NewViewportWithBounds(bounds,
		WithReprojector(r.reprojector),
		WithMetrics(r.metrics),
		WithLogger(r.logger),
		WithDefaultSRID(r.cfg.DefaultSRID),
	)
	if !r.cfg.Screen.IsEmpty() {
		screen := r.cfg.Screen
		if err := vp.SetScreenArea(&screen); err != nil {
			return nil, err
		}
	}

	session := &Session{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now(),
		Viewport:  vp,
		events:    NewEventRecorder(r.cfg.EventLimit),
	}
	vp.AddListener(session.events)

	r.mu.Lock()
	r.sessions[session.ID] = session
	count := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetSessionsActive(count)
	r.logger.Info("viewport session created", "id", session.ID, "name", name)
	return session, nil
}

// Get returns a session by ID.
func (r *SessionRegistry) Get(_ context.Context, id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// GetByName returns the first session with the given name.
func (r *SessionRegistry) GetByName(_ context.Context, name string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, session := range r.sessions {
		if session.Name == name {
			return session, nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

// List returns all sessions ordered by creation time.
func (r *SessionRegistry) List(_ context.Context) []*Session {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	r.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions
}

// Delete removes a session.
func (r *SessionRegistry) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	session, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	count := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}

	session.Viewport.RemoveListener(session.events)
	r.metrics.SetSessionsActive(count)
	r.logger.Info("viewport session deleted", "id", id)
	return nil
}

// Count returns the number of sessions.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ApplyPreset applies p to the session named after it, creating the session
// if needed. Untagged preset bounds are read in the preset's reference
// system, or in the session's when the preset names none. A reference
// system switch that cannot be carried out is returned as an error.
func (r *SessionRegistry) ApplyPreset(ctx context.Context, p domain.Preset) (*Session, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	session, err := r.GetByName(ctx, p.Name)
	if err != nil {
		session, err = r.Create(ctx, p.Name, nil)
		if err != nil {
			return nil, err
		}
	}

	vp := session.Viewport
	if p.Screen != nil {
		if err := vp.SetScreenArea(p.Screen); err != nil {
			return nil, err
		}
	}
	if p.Bounds != nil {
		bounds := *p.Bounds
		if bounds.SRID == 0 {
			bounds.SRID = p.SRID
		}
		if bounds.SRID == 0 {
			bounds.SRID = vp.CoordinateReferenceSystem()
		}
		if err := vp.SetBounds(&bounds); err != nil {
			return nil, err
		}
	}
	if p.SRID > 0 {
		if err := vp.ChangeCoordinateReferenceSystem(ctx, p.SRID); err != nil {
			return nil, fmt.Errorf("applying preset %s: %w", p.Name, err)
		}
	}

	r.logger.Info("preset applied", "preset", p.Name, "session", session.ID)
	return session, nil
}

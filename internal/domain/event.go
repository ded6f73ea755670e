package domain

// EventType identifies what changed in a viewport.
type EventType string

// Event types.
const (
	EventBounds EventType = "bounds" // World bounds changed
	EventCRS    EventType = "crs"    // Reference system changed
)

// BoundsChangeEvent is delivered to viewport listeners. Old and New are
// copies owned by the event.
type BoundsChangeEvent struct {
	Type EventType
	Old  Envelope
	New  Envelope
}

// CRSChanged returns true if the event carries a reference system change.
func (e BoundsChangeEvent) CRSChanged() bool {
	return e.Type == EventCRS || e.Old.SRID != e.New.SRID
}

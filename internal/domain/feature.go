package domain

// Feature is a feature record reduced to what the viewport needs: its
// identity and its bounding box.
type Feature struct {
	ID           int64    // Feature ID (fid)
	LayerName    string   // Associated layer name
	GeometryType string   // Geometry type (POINT, POLYGON, etc.)
	Bounds       Envelope // Bounding box of the geometry
}

// IsPoint returns true if the feature bounds collapse to a single point.
func (f *Feature) IsPoint() bool {
	return f.Bounds.MinX == f.Bounds.MaxX && f.Bounds.MinY == f.Bounds.MaxY
}

// BoundsAccumulator collects the total bounds of a feature stream.
type BoundsAccumulator struct {
	srid   int
	bounds Envelope
	seen   bool
	count  int64
}

// NewBoundsAccumulator creates an accumulator whose empty result is tagged
// with srid.
func NewBoundsAccumulator(srid int) *BoundsAccumulator {
	return &BoundsAccumulator{srid: srid}
}

// Add includes a feature's bounds.
func (a *BoundsAccumulator) Add(f Feature) {
	a.count++
	b := f.Bounds.WithSRID(a.srid)
	if !a.seen {
		a.bounds = b
		a.seen = true
		return
	}
	a.bounds = a.bounds.ExpandToInclude(b)
}

// Count returns the number of features added.
func (a *BoundsAccumulator) Count() int64 {
	return a.count
}

// Bounds returns the accumulated envelope, or an empty envelope in the
// accumulator's reference system when nothing was added.
func (a *BoundsAccumulator) Bounds() Envelope {
	if !a.seen {
		return EmptyEnvelope(a.srid)
	}
	return a.bounds
}

// Package index provides an in-memory R-tree over feature bounds.
package index

import (
	"sort"
	"sync"

	"github.com/dhconnelly/rtreego"

	"github.com/jobrunner/mapview/internal/domain"
)

// minExtent is the edge length given to degenerate (point or line) bounds.
// The R-tree requires rectangles with non-zero size on both axes.
const minExtent = 1e-9

// indexedFeature wraps a feature for R-tree storage.
type indexedFeature struct {
	feature domain.Feature
}

// Bounds implements rtreego.Spatial.
func (f *indexedFeature) Bounds() rtreego.Rect {
	return envelopeRect(f.feature.Bounds)
}

// RTree implements the FeatureIndex port.
type RTree struct {
	mu   sync.RWMutex
	tree *rtreego.Rtree
	size int
}

// NewRTree creates an empty index.
func NewRTree() *RTree {
	return &RTree{tree: rtreego.NewTree(2, 25, 50)}
}

// Insert adds features to the index.
func (t *RTree) Insert(features ...domain.Feature) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, f := range features {
		t.tree.Insert(&indexedFeature{feature: f})
		t.size++
	}
}

// Search returns the features whose bounds intersect env, ordered by ID.
// An empty envelope matches nothing.
func (t *RTree) Search(env domain.Envelope) []domain.Feature {
	if env.IsEmpty() {
		return nil
	}

	t.mu.RLock()
	spatials := t.tree.SearchIntersect(envelopeRect(env))
	t.mu.RUnlock()

	features := make([]domain.Feature, 0, len(spatials))
	for _, s := range spatials {
		if f, ok := s.(*indexedFeature); ok {
			features = append(features, f.feature)
		}
	}
	sort.Slice(features, func(i, j int) bool { return features[i].ID < features[j].ID })
	return features
}

// Size returns the number of indexed features.
func (t *RTree) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

func envelopeRect(env domain.Envelope) rtreego.Rect {
	point := rtreego.Point{env.MinX, env.MinY}
	lengths := []float64{
		max(env.MaxX-env.MinX, minExtent),
		max(env.MaxY-env.MinY, minExtent),
	}
	rect, _ := rtreego.NewRect(point, lengths)
	return rect
}

package domain

import "testing"

func TestFeatureIsPoint(t *testing.T) {
	tests := []struct {
		name    string
		feature Feature
		want    bool
	}{
		{"point", Feature{Bounds: NewEnvelope(3, 4, 3, 4, SRIDWGS84)}, true},
		{"line", Feature{Bounds: NewEnvelope(0, 0, 3, 0, SRIDWGS84)}, false},
		{"area", Feature{Bounds: NewEnvelope(0, 0, 3, 4, SRIDWGS84)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.feature.IsPoint(); got != tt.want {
				t.Errorf("IsPoint() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBoundsAccumulator(t *testing.T) {
	tests := []struct {
		name     string
		features []Feature
		want     Envelope
	}{
		{
			name: "no features",
			want: EmptyEnvelope(SRIDWebMercator),
		},
		{
			name: "single point stays degenerate",
			features: []Feature{
				{Bounds: NewEnvelope(5, 6, 5, 6, 0)},
			},
			want: Envelope{MinX: 5, MinY: 6, MaxX: 5, MaxY: 6, SRID: SRIDWebMercator},
		},
		{
			name: "points away from the origin",
			features: []Feature{
				{Bounds: NewEnvelope(10, 20, 10, 20, 0)},
				{Bounds: NewEnvelope(30, 5, 30, 5, 0)},
			},
			want: Envelope{MinX: 10, MinY: 5, MaxX: 30, MaxY: 20, SRID: SRIDWebMercator},
		},
		{
			name: "mixed extents and negative coordinates",
			features: []Feature{
				{Bounds: NewEnvelope(-5, -5, 0, 0, SRIDWGS84)},
				{Bounds: NewEnvelope(2, 1, 8, 3, 0)},
			},
			want: Envelope{MinX: -5, MinY: -5, MaxX: 8, MaxY: 3, SRID: SRIDWebMercator},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := NewBoundsAccumulator(SRIDWebMercator)
			for _, f := range tt.features {
				acc.Add(f)
			}

			if got := acc.Bounds(); got != tt.want {
				t.Errorf("Bounds() = %+v, want %+v", got, tt.want)
			}
			if got := acc.Count(); got != int64(len(tt.features)) {
				t.Errorf("Count() = %d, want %d", got, len(tt.features))
			}
		})
	}
}

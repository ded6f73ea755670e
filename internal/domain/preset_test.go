package domain

import (
	"errors"
	"math"
	"testing"
)

func TestPresetValidate(t *testing.T) {
	bounds := NewEnvelope(13, 52, 14, 53, 0)
	badBounds := Envelope{MinX: math.NaN(), MaxX: 1, MaxY: 1}
	screen := NewScreenRect(0, 0, 0, 0)

	tests := []struct {
		name      string
		preset    Preset
		wantField string
	}{
		{"name only", Preset{Name: "overview"}, ""},
		{"full", Preset{Name: "berlin", SRID: SRIDWGS84, Screen: &screen, Bounds: &bounds}, ""},
		{"bounds without any srid", Preset{Name: "berlin", Bounds: &bounds}, ""},
		{"blank name", Preset{Name: "  "}, "name"},
		{"negative srid", Preset{Name: "x", SRID: -1}, "srid"},
		{"non-finite bounds", Preset{Name: "x", Bounds: &badBounds}, "bounds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.preset.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.wantField {
				t.Errorf("Validate() error = %v, want ValidationError on %s", err, tt.wantField)
			}
		})
	}
}

func TestPresetValidateDoesNotModifyBounds(t *testing.T) {
	bounds := NewEnvelope(0, 0, 1, 1, 0)
	p := Preset{Name: "x", SRID: SRIDWebMercator, Bounds: &bounds}

	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if p.Bounds.SRID != 0 {
		t.Errorf("Bounds.SRID = %d, want untouched 0", p.Bounds.SRID)
	}
}

package domain

import (
	"errors"
	"math"
	"testing"
)

func TestNewWGS84Coordinate(t *testing.T) {
	c := NewWGS84Coordinate(9.9, 52.5)

	if c.X != 9.9 {
		t.Errorf("expected X=9.9, got %f", c.X)
	}
	if c.Y != 52.5 {
		t.Errorf("expected Y=52.5, got %f", c.Y)
	}
	if c.SRID != SRIDWGS84 {
		t.Errorf("expected SRID=%d, got %d", SRIDWGS84, c.SRID)
	}
}

func TestNewCoordinate(t *testing.T) {
	c := NewCoordinate(500000, 5700000, SRIDETRS89UTM32N)

	if c.X != 500000 {
		t.Errorf("expected X=500000, got %f", c.X)
	}
	if c.Y != 5700000 {
		t.Errorf("expected Y=5700000, got %f", c.Y)
	}
	if c.SRID != SRIDETRS89UTM32N {
		t.Errorf("expected SRID=%d, got %d", SRIDETRS89UTM32N, c.SRID)
	}
}

func TestCoordinateValidate(t *testing.T) {
	tests := []struct {
		name    string
		coord   Coordinate
		wantErr bool
	}{
		{
			name:    "valid WGS84 coordinate",
			coord:   NewWGS84Coordinate(9.9, 52.5),
			wantErr: false,
		},
		{
			name:    "valid WGS84 at origin",
			coord:   NewWGS84Coordinate(0, 0),
			wantErr: false,
		},
		{
			name:    "valid WGS84 at max bounds",
			coord:   NewWGS84Coordinate(180, 90),
			wantErr: false,
		},
		{
			name:    "valid WGS84 at min bounds",
			coord:   NewWGS84Coordinate(-180, -90),
			wantErr: false,
		},
		{
			name:    "invalid longitude too high",
			coord:   NewWGS84Coordinate(181, 52.5),
			wantErr: true,
		},
		{
			name:    "invalid longitude too low",
			coord:   NewWGS84Coordinate(-181, 52.5),
			wantErr: true,
		},
		{
			name:    "invalid latitude too high",
			coord:   NewWGS84Coordinate(9.9, 91),
			wantErr: true,
		},
		{
			name:    "invalid latitude too low",
			coord:   NewWGS84Coordinate(9.9, -91),
			wantErr: true,
		},
		{
			name:    "non-WGS84 coordinate is always valid",
			coord:   NewCoordinate(500000, 5700000, SRIDETRS89UTM32N),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.coord.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCoordinateValidateNonFinite(t *testing.T) {
	tests := []Coordinate{
		NewCoordinate(math.NaN(), 0, SRIDWebMercator),
		NewCoordinate(0, math.Inf(1), SRIDWebMercator),
		NewWGS84Coordinate(math.Inf(-1), 0),
	}

	for _, c := range tests {
		var ve *ValidationError
		if err := c.Validate(); !errors.As(err, &ve) || ve.Field != "coordinate" {
			t.Errorf("Validate(%v) error = %v, want coordinate ValidationError", c, err)
		}
	}
}

func TestCoordinateString(t *testing.T) {
	c := NewWGS84Coordinate(9.9, 52.5)
	want := "POINT(9.900000 52.500000) SRID=4326"

	if got := c.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestIsKnownSRID(t *testing.T) {
	tests := []struct {
		name string
		srid int
		want bool
	}{
		{"WGS84", SRIDWGS84, true},
		{"WebMercator", SRIDWebMercator, true},
		{"ETRS89 UTM32N", SRIDETRS89UTM32N, true},
		{"unknown SRID", 99999, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsKnownSRID(tt.srid); got != tt.want {
				t.Errorf("IsKnownSRID(%d) = %v, want %v", tt.srid, got, tt.want)
			}
		})
	}
}

func TestProjectionFor(t *testing.T) {
	tests := []struct {
		srid     int
		wantName string
		wantCode string
	}{
		{SRIDWGS84, "WGS 84", "EPSG:4326"},
		{SRIDDHDN3GK3, "DHDN / Gauß-Krüger zone 3", "EPSG:31467"},
		{2154, "EPSG:2154", "EPSG:2154"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			p := ProjectionFor(tt.srid)
			if p.SRID != tt.srid || p.Name != tt.wantName {
				t.Errorf("ProjectionFor(%d) = %+v", tt.srid, p)
			}
			if got := p.Code(); got != tt.wantCode {
				t.Errorf("Code() = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestDefaultSRIDIsKnown(t *testing.T) {
	if !IsKnownSRID(DefaultSRID) {
		t.Errorf("DefaultSRID %d should be a known system", DefaultSRID)
	}
}

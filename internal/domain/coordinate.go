// Package domain contains the core value types of the map viewport.
package domain

import (
	"fmt"
	"math"
)

// Coordinate represents a point in world space.
type Coordinate struct {
	X    float64 // Longitude or Easting
	Y    float64 // Latitude or Northing
	SRID int     // Spatial Reference ID
}

// NewWGS84Coordinate creates a WGS84 (EPSG:4326) coordinate.
func NewWGS84Coordinate(lon, lat float64) Coordinate {
	return Coordinate{X: lon, Y: lat, SRID: SRIDWGS84}
}

// NewCoordinate creates a coordinate with the specified SRID.
func NewCoordinate(x, y float64, srid int) Coordinate {
	return Coordinate{X: x, Y: y, SRID: srid}
}

// Validate checks if the coordinate is valid for its SRID.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.X) || math.IsNaN(c.Y) || math.IsInf(c.X, 0) || math.IsInf(c.Y, 0) {
		return &ValidationError{
			Field:      "coordinate",
			Value:      c,
			Constraint: "finite",
			Message:    "coordinate must be finite",
		}
	}
	if c.SRID == SRIDWGS84 {
		if c.X < -180 || c.X > 180 {
			return &ValidationError{
				Field:      "longitude",
				Value:      c.X,
				Constraint: "[-180, 180]",
				Message:    "longitude must be between -180 and 180",
			}
		}
		if c.Y < -90 || c.Y > 90 {
			return &ValidationError{
				Field:      "latitude",
				Value:      c.Y,
				Constraint: "[-90, 90]",
				Message:    "latitude must be between -90 and 90",
			}
		}
	}
	return nil
}

// String returns a string representation of the coordinate.
func (c Coordinate) String() string {
	return fmt.Sprintf("POINT(%f %f) SRID=%d", c.X, c.Y, c.SRID)
}

// Projection represents a coordinate reference system.
type Projection struct {
	SRID int    // EPSG Code
	Name string // Human-readable name
}

// Code returns the EPSG authority code, e.g. "EPSG:4326".
func (p Projection) Code() string {
	return fmt.Sprintf("EPSG:%d", p.SRID)
}

// Common SRID constants.
const (
	SRIDWGS84        = 4326  // WGS 84
	SRIDWebMercator  = 3857  // Web Mercator
	SRIDETRS89UTM32N = 25832 // ETRS89 / UTM zone 32N
	SRIDETRS89UTM33N = 25833 // ETRS89 / UTM zone 33N
	SRIDDHDN3GK2     = 31466 // DHDN / Gauß-Krüger zone 2
	SRIDDHDN3GK3     = 31467 // DHDN / Gauß-Krüger zone 3
)

// DefaultSRID is the reference system of a fresh viewport.
const DefaultSRID = SRIDWGS84

// CommonProjections contains frequently used projections.
var CommonProjections = map[int]Projection{
	SRIDWGS84:        {SRID: SRIDWGS84, Name: "WGS 84"},
	SRIDWebMercator:  {SRID: SRIDWebMercator, Name: "Web Mercator"},
	SRIDETRS89UTM32N: {SRID: SRIDETRS89UTM32N, Name: "ETRS89 / UTM zone 32N"},
	SRIDETRS89UTM33N: {SRID: SRIDETRS89UTM33N, Name: "ETRS89 / UTM zone 33N"},
	SRIDDHDN3GK2:     {SRID: SRIDDHDN3GK2, Name: "DHDN / Gauß-Krüger zone 2"},
	SRIDDHDN3GK3:     {SRID: SRIDDHDN3GK3, Name: "DHDN / Gauß-Krüger zone 3"},
}

// IsKnownSRID returns true if the SRID is in the common projections list.
func IsKnownSRID(srid int) bool {
	_, ok := CommonProjections[srid]
	return ok
}

// ProjectionFor returns the projection for srid. Unknown codes get a generic name.
func ProjectionFor(srid int) Projection {
	if p, ok := CommonProjections[srid]; ok {
		return p
	}
	return Projection{SRID: srid, Name: fmt.Sprintf("EPSG:%d", srid)}
}

package domain

import "strings"

// Preset is a named viewport configuration that can be applied to a session.
// Nil fields leave the corresponding viewport property as it is.
type Preset struct {
	Name   string
	SRID   int
	Screen *ScreenRect
	Bounds *Envelope
}

// Validate checks the preset for obviously broken values. Empty screen or
// bounds are allowed; they reset the viewport.
func (p *Preset) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{
			Field:      "name",
			Value:      p.Name,
			Constraint: "non-empty",
			Message:    "preset name is required",
		}
	}
	if p.SRID < 0 {
		return &ValidationError{
			Field:      "srid",
			Value:      p.SRID,
			Constraint: ">= 0",
			Message:    "srid must not be negative",
		}
	}
	if p.Bounds != nil {
		b := *p.Bounds
		if b.SRID == 0 {
			b.SRID = p.SRID
		}
		if b.SRID == 0 {
			b.SRID = DefaultSRID
		}
		if err := b.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ViewportState is a consistent snapshot of a viewport.
type ViewportState struct {
	Screen        ScreenRect
	Bounds        Envelope
	WorldToScreen Transform
	ScreenToWorld Transform
	Empty         bool
}

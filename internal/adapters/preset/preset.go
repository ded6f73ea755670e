// Package preset decodes viewport presets from YAML.
//
// A preset file looks like this:
//
//	name: berlin
//	srid: 4326
//	screen:
//	  width: 800
//	  height: 600
//	bounds:
//	  min_x: 13.08
//	  min_y: 52.33
//	  max_x: 13.76
//	  max_y: 52.68
//
// Every key except name is optional.
package preset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jobrunner/mapview/internal/domain"
	"github.com/jobrunner/mapview/internal/ports/output"
)

type fileScreen struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type fileBounds struct {
	MinX float64 `yaml:"min_x"`
	MinY float64 `yaml:"min_y"`
	MaxX float64 `yaml:"max_x"`
	MaxY float64 `yaml:"max_y"`
	SRID int     `yaml:"srid"`
}

type file struct {
	Name   string      `yaml:"name"`
	SRID   int         `yaml:"srid"`
	Screen *fileScreen `yaml:"screen"`
	Bounds *fileBounds `yaml:"bounds"`
}

// Decode reads a single preset document. Unknown keys are rejected so that
// typos do not silently leave a property unchanged.
func Decode(r io.Reader) (domain.Preset, error) {
	return decode(r, "")
}

// decode reads a preset, using defaultName when the document has no name.
func decode(r io.Reader, defaultName string) (domain.Preset, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Preset{}, &domain.ValidationError{
				Field:      "preset",
				Constraint: "non-empty",
				Message:    "preset document is empty",
			}
		}
		return domain.Preset{}, fmt.Errorf("decoding preset: %w: %w", domain.ErrInvalidInput, err)
	}

	p := domain.Preset{
		Name: strings.TrimSpace(f.Name),
		SRID: f.SRID,
	}
	if p.Name == "" {
		p.Name = defaultName
	}
	if f.Screen != nil {
		screen := domain.NewScreenRect(f.Screen.X, f.Screen.Y, f.Screen.Width, f.Screen.Height)
		p.Screen = &screen
	}
	if f.Bounds != nil {
		srid := f.Bounds.SRID
		if srid == 0 {
			srid = f.SRID
		}
		bounds := domain.NewEnvelope(f.Bounds.MinX, f.Bounds.MinY, f.Bounds.MaxX, f.Bounds.MaxY, srid)
		p.Bounds = &bounds
	}

	if err := p.Validate(); err != nil {
		return domain.Preset{}, err
	}
	return p, nil
}

// DecodeBytes decodes a preset held in memory.
func DecodeBytes(data []byte) (domain.Preset, error) {
	return Decode(bytes.NewReader(data))
}

// Encode writes p as YAML.
func Encode(w io.Writer, p domain.Preset) error {
	f := file{Name: p.Name, SRID: p.SRID}
	if p.Screen != nil {
		f.Screen = &fileScreen{X: p.Screen.X, Y: p.Screen.Y, Width: p.Screen.Width, Height: p.Screen.Height}
	}
	if p.Bounds != nil {
		f.Bounds = &fileBounds{
			MinX: p.Bounds.MinX, MinY: p.Bounds.MinY,
			MaxX: p.Bounds.MaxX, MaxY: p.Bounds.MaxY,
			SRID: p.Bounds.SRID,
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}
	return enc.Close()
}

// NameFromPath derives the default preset name from a file name.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadAll decodes every preset object in store. A preset without a name is
// named after its file. Broken files are returned as errors next to the
// presets that could be decoded.
func LoadAll(ctx context.Context, store output.ObjectStorage) ([]domain.Preset, []error) {
	objects, err := store.List(ctx)
	if err != nil {
		return nil, []error{err}
	}

	var (
		presets []domain.Preset
		errs    []error
	)
	for _, obj := range objects {
		p, err := LoadFile(ctx, store, obj.Key)
		if err != nil {
			errs = append(errs, fmt.Errorf("preset %s: %w", obj.Key, err))
			continue
		}
		presets = append(presets, p)
	}
	return presets, errs
}

// LoadFile decodes the preset at key in store, naming it after the file
// when the document carries no name.
func LoadFile(ctx context.Context, store output.ObjectStorage, key string) (domain.Preset, error) {
	rc, err := store.GetReader(ctx, key)
	if err != nil {
		return domain.Preset{}, err
	}
	defer func() { _ = rc.Close() }()

	return decode(rc, NameFromPath(key))
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jobrunner/mapview/internal/adapters/geopackage"
	"github.com/jobrunner/mapview/internal/application"
	"github.com/jobrunner/mapview/internal/domain"
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit world bounds into a screen area",
	Long: `Fit computes the viewport for the given screen area and requested
world bounds and prints the corrected bounds and both transforms as JSON.

With --to-srid the bounds are reprojected afterwards (requires SpatiaLite).`,
	Example: `  mapview fit --screen 800x600 --bounds 13.08,52.33,13.76,52.68
  mapview fit --screen 1024x768 --bounds 5,47,15,55 --to-srid 3857`,
	RunE: runFit,
}

func init() {
	fitCmd.Flags().String("screen", "", "screen area as WIDTHxHEIGHT or X,Y,WIDTH,HEIGHT")
	fitCmd.Flags().String("bounds", "", "world bounds as MINX,MINY,MAXX,MAXY")
	fitCmd.Flags().Int("srid", domain.DefaultSRID, "reference system of --bounds")
	fitCmd.Flags().Int("to-srid", 0, "reproject the fitted viewport into this reference system")
	_ = fitCmd.MarkFlagRequired("screen")
	_ = fitCmd.MarkFlagRequired("bounds")
}

func runFit(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	screenArg, _ := flags.GetString("screen")
	boundsArg, _ := flags.GetString("bounds")
	srid, _ := flags.GetInt("srid")
	toSRID, _ := flags.GetInt("to-srid")

	screen, err := parseScreen(screenArg)
	if err != nil {
		return err
	}
	bounds, err := parseBounds(boundsArg, srid)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	opts := []application.Option{application.WithLogger(logger), application.WithDefaultSRID(srid)}
	if toSRID > 0 && toSRID != srid {
		reprojector, err := geopackage.NewReprojector(cmd.Context())
		if err != nil {
			return fmt.Errorf("reprojection unavailable: %w", err)
		}
		defer func() { _ = reprojector.Close() }()
		opts = append(opts, application.WithReprojector(reprojector))
	}

	vp := application.NewViewport(opts...)
	if err := vp.SetScreenArea(&screen); err != nil {
		return err
	}
	if err := vp.SetBounds(&bounds); err != nil {
		return err
	}
	if toSRID > 0 {
		if err := vp.ChangeCoordinateReferenceSystem(cmd.Context(), toSRID); err != nil {
			return err
		}
	}

	return writeJSON(cmd.OutOrStdout(), stateJSON(vp.Snapshot()))
}

// parseScreen accepts WIDTHxHEIGHT or X,Y,WIDTH,HEIGHT.
func parseScreen(s string) (domain.ScreenRect, error) {
	if w, h, ok := strings.Cut(strings.ToLower(s), "x"); ok {
		vals, err := parseFloats([]string{w, h})
		if err != nil {
			return domain.ScreenRect{}, fmt.Errorf("invalid screen %q: %w", s, err)
		}
		return domain.NewScreenRect(0, 0, vals[0], vals[1]), nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.ScreenRect{}, fmt.Errorf("invalid screen %q: want WIDTHxHEIGHT or X,Y,WIDTH,HEIGHT", s)
	}
	vals, err := parseFloats(parts)
	if err != nil {
		return domain.ScreenRect{}, fmt.Errorf("invalid screen %q: %w", s, err)
	}
	return domain.NewScreenRect(vals[0], vals[1], vals[2], vals[3]), nil
}

// parseBounds accepts MINX,MINY,MAXX,MAXY in any corner order.
func parseBounds(s string, srid int) (domain.Envelope, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.Envelope{}, fmt.Errorf("invalid bounds %q: want MINX,MINY,MAXX,MAXY", s)
	}
	vals, err := parseFloats(parts)
	if err != nil {
		return domain.Envelope{}, fmt.Errorf("invalid bounds %q: %w", s, err)
	}
	env := domain.NewEnvelope(vals[0], vals[1], vals[2], vals[3], srid)
	if err := env.Validate(); err != nil {
		return domain.Envelope{}, err
	}
	return env, nil
}

func parseFloats(parts []string) ([]float64, error) {
	vals := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

type envelopeOut struct {
	MinX  float64 `json:"min_x"`
	MinY  float64 `json:"min_y"`
	MaxX  float64 `json:"max_x"`
	MaxY  float64 `json:"max_y"`
	SRID  int     `json:"srid"`
	Empty bool    `json:"empty"`
}

type transformOut struct {
	ScaleX     float64 `json:"scale_x"`
	ShearY     float64 `json:"shear_y"`
	ShearX     float64 `json:"shear_x"`
	ScaleY     float64 `json:"scale_y"`
	TranslateX float64 `json:"translate_x"`
	TranslateY float64 `json:"translate_y"`
}

type screenOut struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type fitOut struct {
	Screen        screenOut    `json:"screen"`
	Bounds        envelopeOut  `json:"bounds"`
	WorldToScreen transformOut `json:"world_to_screen"`
	ScreenToWorld transformOut `json:"screen_to_world"`
}

func envelopeJSON(e domain.Envelope) envelopeOut {
	return envelopeOut{MinX: e.MinX, MinY: e.MinY, MaxX: e.MaxX, MaxY: e.MaxY, SRID: e.SRID, Empty: e.IsEmpty()}
}

func transformJSON(t domain.Transform) transformOut {
	return transformOut(t)
}

func stateJSON(s domain.ViewportState) fitOut {
	return fitOut{
		Screen:        screenOut(s.Screen),
		Bounds:        envelopeJSON(s.Bounds),
		WorldToScreen: transformJSON(s.WorldToScreen),
		ScreenToWorld: transformJSON(s.ScreenToWorld),
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jobrunner/mapview/internal/adapters/geopackage"
	"github.com/jobrunner/mapview/internal/application"
	"github.com/jobrunner/mapview/internal/ports/output"
)

var extentCmd = &cobra.Command{
	Use:   "extent",
	Short: "Scan a GeoPackage layer and print its bounds",
	Long: `Extent reads every feature of a layer and prints the envelope covering
all of them. Without --layer the layers of the package are listed.`,
	Example: `  mapview extent --gpkg data/roads.gpkg --layer streets`,
	RunE:    runExtent,
}

func init() {
	extentCmd.Flags().String("gpkg", "", "path to the GeoPackage")
	extentCmd.Flags().String("layer", "", "layer to scan")
	_ = extentCmd.MarkFlagRequired("gpkg")
}

type layerOut struct {
	Name         string       `json:"name"`
	GeometryType string       `json:"geometry_type"`
	SRID         int          `json:"srid"`
	FeatureCount int64        `json:"feature_count"`
	Extent       *envelopeOut `json:"extent,omitempty"`
}

func runExtent(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("gpkg")
	layer, _ := cmd.Flags().GetString("layer")

	ctx := cmd.Context()
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	repo := geopackage.NewRepository()
	metrics := &output.NoOpMetrics{}

	catalog := application.NewSourceCatalog(repo, nil, metrics, logger, "")
	if err := catalog.LoadPackage(ctx, path); err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	packageID := geopackage.DerivePackageID(path)
	defer func() { _ = catalog.UnloadPackage(ctx, packageID) }()

	if layer == "" {
		pkg, err := catalog.GetPackage(ctx, packageID)
		if err != nil {
			return err
		}
		layers := make([]layerOut, len(pkg.Layers))
		for i, l := range pkg.Layers {
			layers[i] = layerOut{Name: l.Name, GeometryType: l.GeometryType, SRID: l.SRID, FeatureCount: l.FeatureCount}
			if l.Extent != nil {
				e := envelopeJSON(*l.Extent)
				layers[i].Extent = &e
			}
		}
		return writeJSON(cmd.OutOrStdout(), layers)
	}

	extent := application.NewExtentService(catalog, repo, nil, nil, metrics, logger)
	bounds, err := extent.LayerBounds(ctx, packageID, layer)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), envelopeJSON(bounds))
}

// Package geopackage provides the SpatiaLite-based GeoPackage feature source
// and envelope reprojector.
package geopackage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mattn/go-sqlite3"

	"github.com/jobrunner/mapview/internal/domain"
)

// driverName is the database/sql driver with SpatiaLite loaded.
const driverName = "sqlite3_with_extensions"

// Ensure sqlite3 driver is registered with extension support.
func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		Extensions: getSpatiaLiteLibraryPaths(),
	})
}

// getSpatiaLiteLibraryPaths returns a list of paths to try for loading SpatiaLite.
// The environment variable wins over the platform-specific paths.
func getSpatiaLiteLibraryPaths() []string {
	if envPath := os.Getenv("SPATIALITE_LIBRARY_PATH"); envPath != "" {
		return []string{envPath}
	}

	return []string{
		// Alpine Linux (Docker containers)
		"/usr/lib/mod_spatialite.so",
		"/usr/lib/mod_spatialite.so.8",

		// Debian/Ubuntu
		"/usr/lib/x86_64-linux-gnu/mod_spatialite.so",
		"/usr/lib/aarch64-linux-gnu/mod_spatialite.so",

		// macOS Homebrew
		"/usr/local/lib/mod_spatialite.dylib",
		"/opt/homebrew/lib/mod_spatialite.dylib",

		// Let the system find it via LD_LIBRARY_PATH
		"mod_spatialite",
	}
}

// Repository implements the FeatureSource port using SpatiaLite.
type Repository struct {
	mu          sync.RWMutex
	connections map[string]*sql.DB
	packages    map[string]*domain.GeoPackage
}

// NewRepository creates a new GeoPackage repository.
func NewRepository() *Repository {
	return &Repository{
		connections: make(map[string]*sql.DB),
		packages:    make(map[string]*domain.GeoPackage),
	}
}

// Open opens a GeoPackage file read-only and returns its description.
func (r *Repository) Open(ctx context.Context, path string) (*domain.GeoPackage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	packageID := DerivePackageID(path)
	if pkg, ok := r.packages[packageID]; ok {
		return pkg, nil
	}

	db, err := openDB(ctx, path)
	if err != nil {
		return nil, &domain.StorageError{
			Operation: "open",
			Key:       path,
			Err:       err,
		}
	}

	if err := checkSpatiaLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	layers, err := readLayers(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	pkg := &domain.GeoPackage{
		ID:     packageID,
		Name:   packageID,
		Path:   path,
		Layers: layers,
	}
	if info, err := os.Stat(path); err == nil {
		pkg.Size = info.Size()
	}

	r.connections[packageID] = db
	r.packages[packageID] = pkg
	return pkg, nil
}

// Close closes a GeoPackage connection.
func (r *Repository) Close(_ context.Context, packageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	db, ok := r.connections[packageID]
	if !ok {
		return nil
	}

	if err := db.Close(); err != nil {
		return err
	}

	delete(r.connections, packageID)
	delete(r.packages, packageID)
	return nil
}

// GetLayers returns all feature layers in a GeoPackage.
func (r *Repository) GetLayers(_ context.Context, packageID string) ([]domain.Layer, error) {
	r.mu.RLock()
	pkg, ok := r.packages[packageID]
	r.mu.RUnlock()

	if !ok {
		return nil, domain.ErrPackageNotFound
	}
	return pkg.Layers, nil
}

// ScanFeatures calls fn with the bounding box of every non-null geometry of a
// layer. Scanning stops at the first error returned by fn.
func (r *Repository) ScanFeatures(ctx context.Context, packageID, layerName string, fn func(domain.Feature) error) error {
	r.mu.RLock()
	db, ok := r.connections[packageID]
	pkg := r.packages[packageID]
	r.mu.RUnlock()

	if !ok {
		return domain.ErrPackageNotFound
	}

	layer, found := pkg.GetLayer(layerName)
	if !found {
		return domain.ErrLayerNotFound
	}

	// GeoPackage blobs are converted to SpatiaLite geometries by CastAutomagic.
	query := fmt.Sprintf(`
		SELECT rowid,
			MbrMinX(g), MbrMinY(g), MbrMaxX(g), MbrMaxY(g),
			COALESCE(GeometryType(g), '')
		FROM (SELECT rowid, CastAutomagic("%s") AS g FROM "%s" WHERE "%s" IS NOT NULL)
	`, layer.GeometryColumn, layer.Name, layer.GeometryColumn) //#nosec G201 -- table/column names from trusted database source

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("querying features: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			id                     int64
			minX, minY, maxX, maxY sql.NullFloat64
			geomType               string
		)
		if err := rows.Scan(&id, &minX, &minY, &maxX, &maxY, &geomType); err != nil {
			return fmt.Errorf("scanning feature: %w", err)
		}
		// Empty geometries have no MBR.
		if !minX.Valid || !minY.Valid || !maxX.Valid || !maxY.Valid {
			continue
		}

		f := domain.Feature{
			ID:           id,
			LayerName:    layer.Name,
			GeometryType: geomType,
			Bounds: domain.Envelope{
				MinX: minX.Float64, MinY: minY.Float64,
				MaxX: maxX.Float64, MaxY: maxY.Float64,
				SRID: layer.SRID,
			},
		}
		if err := fn(f); err != nil {
			return err
		}
	}

	return rows.Err()
}

// openDB opens the GeoPackage read-only.
func openDB(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&cache=shared", path)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// checkSpatiaLite verifies that the SpatiaLite extension is loaded.
func checkSpatiaLite(ctx context.Context, db *sql.DB) error {
	var version string
	if err := db.QueryRowContext(ctx, "SELECT spatialite_version()").Scan(&version); err != nil {
		return fmt.Errorf("SpatiaLite extension not available: %w", err)
	}
	return nil
}

// readLayers reads the feature layers registered in gpkg_contents.
func readLayers(ctx context.Context, db *sql.DB) ([]domain.Layer, error) {
	query := `
		SELECT
			c.table_name,
			COALESCE(c.description, ''),
			g.column_name,
			g.geometry_type_name,
			g.srs_id,
			c.min_x, c.min_y, c.max_x, c.max_y
		FROM gpkg_contents c
		JOIN gpkg_geometry_columns g ON c.table_name = g.table_name
		WHERE c.data_type = 'features'
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reading layers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var layers []domain.Layer
	for rows.Next() {
		var l domain.Layer
		var minX, minY, maxX, maxY sql.NullFloat64

		err := rows.Scan(
			&l.Name, &l.Description, &l.GeometryColumn,
			&l.GeometryType, &l.SRID,
			&minX, &minY, &maxX, &maxY,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning layer: %w", err)
		}

		l.Extent = contentsExtent(minX, minY, maxX, maxY, l.SRID)
		layers = append(layers, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range layers {
		countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, layers[i].Name) //#nosec G201 -- table name from trusted database source
		var count int64
		if err := db.QueryRowContext(ctx, countQuery).Scan(&count); err == nil {
			layers[i].FeatureCount = count
		}
	}

	return layers, nil
}

// contentsExtent turns the optional gpkg_contents bounds into an envelope.
// The extent is advisory; it is nil when missing or empty.
func contentsExtent(minX, minY, maxX, maxY sql.NullFloat64, srid int) *domain.Envelope {
	if !minX.Valid || !minY.Valid || !maxX.Valid || !maxY.Valid {
		return nil
	}
	env := domain.NewEnvelope(minX.Float64, minY.Float64, maxX.Float64, maxY.Float64, srid)
	if env.IsEmpty() {
		return nil
	}
	return &env
}

// DerivePackageID derives a package ID from the file path.
// It extracts the filename without extension as the package identifier.
func DerivePackageID(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext)
}

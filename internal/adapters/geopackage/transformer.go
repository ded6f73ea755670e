package geopackage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/jobrunner/mapview/internal/domain"
)

// DefaultDensify is the number of points inserted along each envelope edge
// before reprojection. Curved edges in the target system would otherwise be
// cut off by the bounding box of the four corners.
const DefaultDensify = 16

// Reprojector implements the EnvelopeReprojector port using an in-memory
// SpatiaLite database. GeoPackage files are opened read-only and lack the
// spatial_ref_sys table ST_Transform needs, hence the separate database.
type Reprojector struct {
	db      *sql.DB
	densify int
}

// NewReprojector creates a reprojector with an initialized in-memory
// SpatiaLite database.
func NewReprojector(ctx context.Context) (*Reprojector, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, err
	}
	// Each pooled connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if err := checkSpatiaLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	// InitSpatialMetaDataFull populates spatial_ref_sys with the EPSG definitions.
	if _, err := db.ExecContext(ctx, "SELECT InitSpatialMetaDataFull(1)"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing spatial metadata: %w", err)
	}

	return &Reprojector{db: db, densify: DefaultDensify}, nil
}

// Reproject transforms env into targetSRID and returns the bounding box of
// the densified outline. A strict reprojection fails when either reference
// system is unknown; a lenient one attempts the transformation anyway.
func (t *Reprojector) Reproject(ctx context.Context, env domain.Envelope, targetSRID int, lenient bool) (domain.Envelope, error) {
	if env.SRID == targetSRID {
		return env, nil
	}
	if env.IsEmpty() {
		return domain.EmptyEnvelope(targetSRID), nil
	}
	if !lenient && !t.IsSupported(ctx, env.SRID, targetSRID) {
		return domain.Envelope{}, fmt.Errorf("EPSG:%d to EPSG:%d: %w",
			env.SRID, targetSRID, domain.ErrUnsupportedProjection)
	}

	query := `
		SELECT MbrMinX(g), MbrMinY(g), MbrMaxX(g), MbrMaxY(g)
		FROM (SELECT ST_Transform(GeomFromText(?, ?), ?) AS g)
	`
	var minX, minY, maxX, maxY sql.NullFloat64
	err := t.db.QueryRowContext(ctx, query, densifiedPolygonWKT(env, t.densify), env.SRID, targetSRID).
		Scan(&minX, &minY, &maxX, &maxY)
	if err != nil {
		return domain.Envelope{}, fmt.Errorf("transforming envelope: %w", err)
	}
	if !minX.Valid || !minY.Valid || !maxX.Valid || !maxY.Valid {
		return domain.Envelope{}, fmt.Errorf("EPSG:%d to EPSG:%d: %w",
			env.SRID, targetSRID, domain.ErrReprojectionFailed)
	}

	return domain.NewEnvelope(minX.Float64, minY.Float64, maxX.Float64, maxY.Float64, targetSRID), nil
}

// IsSupported checks that both SRIDs are known to spatial_ref_sys.
func (t *Reprojector) IsSupported(ctx context.Context, sourceSRID, targetSRID int) bool {
	if sourceSRID <= 0 || targetSRID <= 0 {
		return false
	}

	query := `SELECT COUNT(DISTINCT srid) FROM spatial_ref_sys WHERE srid IN (?, ?)`
	var count int
	if err := t.db.QueryRowContext(ctx, query, sourceSRID, targetSRID).Scan(&count); err != nil {
		return false
	}
	if sourceSRID == targetSRID {
		return count == 1
	}
	return count == 2
}

// Close closes the reprojector's database connection.
func (t *Reprojector) Close() error {
	return t.db.Close()
}

// densifiedPolygonWKT renders the outline of env as a closed polygon ring
// with n intermediate points per edge, counter-clockwise from the minimum
// corner.
func densifiedPolygonWKT(env domain.Envelope, n int) string {
	if n < 0 {
		n = 0
	}
	steps := n + 1
	corners := [5][2]float64{
		{env.MinX, env.MinY},
		{env.MaxX, env.MinY},
		{env.MaxX, env.MaxY},
		{env.MinX, env.MaxY},
		{env.MinX, env.MinY},
	}

	var b strings.Builder
	b.WriteString("POLYGON((")
	for edge := 0; edge < 4; edge++ {
		from, to := corners[edge], corners[edge+1]
		for i := 0; i < steps; i++ {
			f := float64(i) / float64(steps)
			writePoint(&b, from[0]+(to[0]-from[0])*f, from[1]+(to[1]-from[1])*f)
			b.WriteString(", ")
		}
	}
	writePoint(&b, env.MinX, env.MinY)
	b.WriteString("))")
	return b.String()
}

func writePoint(b *strings.Builder, x, y float64) {
	b.WriteString(strconv.FormatFloat(x, 'f', -1, 64))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatFloat(y, 'f', -1, 64))
}

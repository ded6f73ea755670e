package geopackage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/jobrunner/mapview/internal/domain"
)

func TestDerivePackageID(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "simple filename",
			path: "/data/test.gpkg",
			want: "test",
		},
		{
			name: "nested path",
			path: "/var/data/geopackages/germany.gpkg",
			want: "germany",
		},
		{
			name: "relative path",
			path: "data/test.gpkg",
			want: "test",
		},
		{
			name: "filename only",
			path: "test.gpkg",
			want: "test",
		},
		{
			name: "different extension",
			path: "/data/test.sqlite",
			want: "test",
		},
		{
			name: "no extension",
			path: "/data/testfile",
			want: "testfile",
		},
		{
			name: "multiple dots",
			path: "/data/test.backup.gpkg",
			want: "test.backup",
		},
		{
			name: "with spaces",
			path: "/data/my package.gpkg",
			want: "my package",
		},
		{
			name: "empty path",
			path: "",
			want: "",
		},
		{
			name: "just extension",
			path: ".gpkg",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DerivePackageID(tt.path); got != tt.want {
				t.Errorf("DerivePackageID(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestGetSpatiaLiteLibraryPaths(t *testing.T) {
	paths := getSpatiaLiteLibraryPaths()

	if len(paths) == 0 {
		t.Error("getSpatiaLiteLibraryPaths() returned empty slice")
	}
}

func TestGetSpatiaLiteLibraryPathsFromEnv(t *testing.T) {
	t.Setenv("SPATIALITE_LIBRARY_PATH", "/opt/lib/mod_spatialite.so")

	paths := getSpatiaLiteLibraryPaths()
	if len(paths) != 1 || paths[0] != "/opt/lib/mod_spatialite.so" {
		t.Errorf("getSpatiaLiteLibraryPaths() = %v, want only the env path", paths)
	}
}

func TestNewRepository(t *testing.T) {
	repo := NewRepository()

	if repo == nil {
		t.Fatal("NewRepository() returned nil")
	}

	if repo.connections == nil {
		t.Error("connections map should be initialized")
	}

	if repo.packages == nil {
		t.Error("packages map should be initialized")
	}
}

func TestRepositoryUnknownPackage(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	if _, err := repo.GetLayers(ctx, "nonexistent"); !errors.Is(err, domain.ErrPackageNotFound) {
		t.Errorf("GetLayers() error = %v, want ErrPackageNotFound", err)
	}

	err := repo.ScanFeatures(ctx, "nonexistent", "layer", func(domain.Feature) error { return nil })
	if !errors.Is(err, domain.ErrPackageNotFound) {
		t.Errorf("ScanFeatures() error = %v, want ErrPackageNotFound", err)
	}

	if err := repo.Close(ctx, "nonexistent"); err != nil {
		t.Errorf("Close() of unknown package should be a no-op, got %v", err)
	}
}

func TestContentsExtent(t *testing.T) {
	valid := func(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }

	tests := []struct {
		name                   string
		minX, minY, maxX, maxY sql.NullFloat64
		want                   *domain.Envelope
	}{
		{
			name: "complete extent",
			minX: valid(5), minY: valid(47), maxX: valid(15), maxY: valid(55),
			want: &domain.Envelope{MinX: 5, MinY: 47, MaxX: 15, MaxY: 55, SRID: 4326},
		},
		{
			name: "missing value",
			minX: valid(5), minY: sql.NullFloat64{}, maxX: valid(15), maxY: valid(55),
		},
		{
			name: "zero extent",
			minX: valid(0), minY: valid(0), maxX: valid(0), maxY: valid(0),
		},
		{
			name: "swapped corners are normalized",
			minX: valid(15), minY: valid(55), maxX: valid(5), maxY: valid(47),
			want: &domain.Envelope{MinX: 5, MinY: 47, MaxX: 15, MaxY: 55, SRID: 4326},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := contentsExtent(tt.minX, tt.minY, tt.maxX, tt.maxY, 4326)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("contentsExtent() = %s, want nil", got)
			case tt.want != nil && got == nil:
				t.Errorf("contentsExtent() = nil, want %s", tt.want)
			case tt.want != nil && *got != *tt.want:
				t.Errorf("contentsExtent() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDensifiedPolygonWKT(t *testing.T) {
	env := domain.Envelope{MinX: 0, MinY: 0, MaxX: 4, MaxY: 2, SRID: 4326}

	t.Run("corners only", func(t *testing.T) {
		got := densifiedPolygonWKT(env, 0)
		want := "POLYGON((0 0, 4 0, 4 2, 0 2, 0 0))"
		if got != want {
			t.Errorf("densifiedPolygonWKT() = %q, want %q", got, want)
		}
	})

	t.Run("one point per edge", func(t *testing.T) {
		got := densifiedPolygonWKT(env, 1)
		want := "POLYGON((0 0, 2 0, 4 0, 4 1, 4 2, 2 2, 0 2, 0 1, 0 0))"
		if got != want {
			t.Errorf("densifiedPolygonWKT() = %q, want %q", got, want)
		}
	})

	t.Run("point count", func(t *testing.T) {
		got := densifiedPolygonWKT(env, DefaultDensify)
		points := strings.Count(got, ",") + 1
		if want := 4*(DefaultDensify+1) + 1; points != want {
			t.Errorf("densified ring has %d points, want %d", points, want)
		}
	})
}

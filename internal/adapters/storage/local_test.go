package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/jobrunner/mapview/internal/config"
	"github.com/jobrunner/mapview/internal/domain"
)

func writeTestFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}
	}
}

func TestLocalStorageList(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFiles(t, tmpDir, map[string]string{
		"roads.gpkg":          "test",
		"RIVERS.GPKG":         "test",
		"subdir/nested.gpkg":  "test",
		"presets/berlin.yaml": "name: berlin",
		"presets/munich.yml":  "name: munich",
		"ignored.txt":         "test",
	})

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{
			name:   "geopackages",
			filter: GeoPackages,
			want:   []string{"RIVERS.GPKG", "roads.gpkg", filepath.Join("subdir", "nested.gpkg")},
		},
		{
			name:   "presets",
			filter: Presets,
			want:   []string{filepath.Join("presets", "berlin.yaml"), filepath.Join("presets", "munich.yml")},
		},
		{
			name:   "no filter",
			filter: nil,
			want: []string{
				"RIVERS.GPKG", "ignored.txt",
				filepath.Join("presets", "berlin.yaml"), filepath.Join("presets", "munich.yml"),
				"roads.gpkg", filepath.Join("subdir", "nested.gpkg"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objects, err := NewLocalStorage(tmpDir, tt.filter).List(context.Background())
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}

			keys := make([]string, len(objects))
			for i, obj := range objects {
				keys[i] = obj.Key
				if obj.Size == 0 {
					t.Errorf("object %q has zero size", obj.Key)
				}
				if obj.LastModified == 0 {
					t.Errorf("object %q has no modification time", obj.Key)
				}
			}
			sort.Strings(keys)
			sort.Strings(tt.want)

			if len(keys) != len(tt.want) {
				t.Fatalf("List() keys = %v, want %v", keys, tt.want)
			}
			for i := range keys {
				if keys[i] != tt.want[i] {
					t.Errorf("List() keys = %v, want %v", keys, tt.want)
					break
				}
			}
		})
	}
}

func TestLocalStorageListEmpty(t *testing.T) {
	objects, err := NewLocalStorage(t.TempDir(), GeoPackages).List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objects) != 0 {
		t.Errorf("len(objects) = %d, want 0", len(objects))
	}
}

func TestLocalStorageListNonExistent(t *testing.T) {
	_, err := NewLocalStorage("/nonexistent/path", GeoPackages).List(context.Background())
	if err == nil {
		t.Fatal("List() should fail for a missing directory")
	}
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Errorf("List() error should wrap ErrStorageUnavailable, got %v", err)
	}
	var storageErr *domain.StorageError
	if !errors.As(err, &storageErr) || storageErr.Operation != "list" {
		t.Errorf("List() error = %v, want StorageError for list", err)
	}
}

func TestLocalStorageListCanceled(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFiles(t, tmpDir, map[string]string{"a.gpkg": "x"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewLocalStorage(tmpDir, GeoPackages).List(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("List() error = %v, want context.Canceled", err)
	}
}

func TestLocalStorageExists(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFiles(t, tmpDir, map[string]string{"exists.gpkg": "test"})
	storage := NewLocalStorage(tmpDir, GeoPackages)

	tests := []struct {
		key  string
		want bool
	}{
		{"exists.gpkg", true},
		{"missing.gpkg", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := storage.Exists(context.Background(), tt.key)
			if err != nil {
				t.Fatalf("Exists() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Exists(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestLocalStorageGetReader(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFiles(t, tmpDir, map[string]string{"preset.yaml": "name: berlin"})
	storage := NewLocalStorage(tmpDir, Presets)

	reader, err := storage.GetReader(context.Background(), "preset.yaml")
	if err != nil {
		t.Fatalf("GetReader() error = %v", err)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != "name: berlin" {
		t.Errorf("content = %q, want %q", data, "name: berlin")
	}

	if _, err := storage.GetReader(context.Background(), "missing.yaml"); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Errorf("GetReader() of missing key error = %v, want ErrStorageUnavailable", err)
	}
}

func TestLocalStorageDownload(t *testing.T) {
	srcDir := t.TempDir()
	destDir := t.TempDir()
	writeTestFiles(t, srcDir, map[string]string{"roads.gpkg": "geopackage content"})
	storage := NewLocalStorage(srcDir, GeoPackages)

	dest := filepath.Join(destDir, "cache", "nested", "roads.gpkg")
	if err := storage.Download(context.Background(), "roads.gpkg", dest); err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("failed to read destination: %v", err)
	}
	if string(data) != "geopackage content" {
		t.Errorf("content = %q, want %q", data, "geopackage content")
	}

	// No temporary files are left behind.
	entries, err := os.ReadDir(filepath.Dir(dest))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("destination directory has %d entries, want 1", len(entries))
	}
}

func TestLocalStorageDownloadSameFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFiles(t, tmpDir, map[string]string{"roads.gpkg": "original"})
	storage := NewLocalStorage(tmpDir, GeoPackages)

	if err := storage.Download(context.Background(), "roads.gpkg", storage.FullPath("roads.gpkg")); err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	data, err := os.ReadFile(storage.FullPath("roads.gpkg"))
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if string(data) != "original" {
		t.Errorf("content = %q, want %q", data, "original")
	}
}

func TestLocalStorageDownloadNonExistent(t *testing.T) {
	storage := NewLocalStorage(t.TempDir(), GeoPackages)

	err := storage.Download(context.Background(), "missing.gpkg", filepath.Join(t.TempDir(), "missing.gpkg"))
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Errorf("Download() error = %v, want ErrStorageUnavailable", err)
	}
}

func TestExtensions(t *testing.T) {
	filter := Extensions(".yaml", ".yml")

	tests := []struct {
		key  string
		want bool
	}{
		{"berlin.yaml", true},
		{"dir/munich.YML", true},
		{"roads.gpkg", false},
		{"yaml", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := filter(tt.key); got != tt.want {
			t.Errorf("filter(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestKeyHelpers(t *testing.T) {
	if got := joinKey("", "a.gpkg"); got != "a.gpkg" {
		t.Errorf("joinKey(\"\", a.gpkg) = %q", got)
	}
	if got := joinKey("maps/", "a.gpkg"); got != "maps/a.gpkg" {
		t.Errorf("joinKey(maps/, a.gpkg) = %q", got)
	}
	if got := relativeKey("maps", "maps/a.gpkg"); got != "a.gpkg" {
		t.Errorf("relativeKey(maps, maps/a.gpkg) = %q", got)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	store, err := New(context.Background(), config.StorageConfig{Type: "local", LocalPath: t.TempDir()})
	if err != nil {
		t.Fatalf("New(local) error = %v", err)
	}
	if _, ok := store.(*LocalStorage); !ok {
		t.Errorf("New(local) = %T, want *LocalStorage", store)
	}

	store, err = New(context.Background(), config.StorageConfig{Type: "http", HTTP: config.HTTPConfig{BaseURL: "https://example.com"}})
	if err != nil {
		t.Fatalf("New(http) error = %v", err)
	}
	if _, ok := store.(*HTTPStorage); !ok {
		t.Errorf("New(http) = %T, want *HTTPStorage", store)
	}

	if _, err := New(context.Background(), config.StorageConfig{Type: "ftp"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("New(ftp) error = %v, want ErrInvalidInput", err)
	}
}

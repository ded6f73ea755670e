package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestFsnotifyOpToOperation(t *testing.T) {
	tests := []struct {
		name     string
		op       fsnotify.Op
		expected Operation
	}{
		{"Remove returns OpDelete", fsnotify.Remove, OpDelete},
		{"Rename returns OpDelete", fsnotify.Rename, OpDelete},
		{"Create returns OpCreate", fsnotify.Create, OpCreate},
		{"Write returns OpModify", fsnotify.Write, OpModify},
		{"Chmod returns OpModify", fsnotify.Chmod, OpModify},
		{"Remove takes precedence over Write", fsnotify.Remove | fsnotify.Write, OpDelete},
		{"Create takes precedence over Write", fsnotify.Create | fsnotify.Write, OpCreate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fsnotifyOpToOperation(tt.op); got != tt.expected {
				t.Errorf("fsnotifyOpToOperation(%v) = %v, want %v", tt.op, got, tt.expected)
			}
		})
	}
}

func TestMergeOperations(t *testing.T) {
	tests := []struct {
		existing, next, want Operation
	}{
		{OpCreate, OpModify, OpCreate},
		{OpModify, OpModify, OpModify},
		{OpModify, OpDelete, OpDelete},
		{OpCreate, OpDelete, OpDelete},
		{OpDelete, OpCreate, OpCreate},
		{OpDelete, OpModify, OpCreate},
		{OpDelete, OpDelete, OpDelete},
	}

	for _, tt := range tests {
		t.Run(tt.existing.String()+"+"+tt.next.String(), func(t *testing.T) {
			if got := mergeOperations(tt.existing, tt.next); got != tt.want {
				t.Errorf("mergeOperations(%v, %v) = %v, want %v", tt.existing, tt.next, got, tt.want)
			}
		})
	}
}

func TestOperationString(t *testing.T) {
	tests := []struct {
		op       Operation
		expected string
	}{
		{OpCreate, "create"},
		{OpModify, "modify"},
		{OpDelete, "delete"},
		{Operation(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.op.String(); got != tt.expected {
				t.Errorf("Operation.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestWatcherDebouncesMatchingFiles(t *testing.T) {
	dir := t.TempDir()

	var (
		mu     sync.Mutex
		events []Event
	)
	done := make(chan struct{}, 10)
	handler := func(_ context.Context, e Event) error {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}

	w, err := New(Config{
		Paths:    []string{dir},
		Debounce: 50 * time.Millisecond,
		Match:    func(p string) bool { return strings.HasSuffix(p, ".yaml") },
	}, handler, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() { _ = w.Stop() }()

	preset := filepath.Join(dir, "berlin.yaml")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(preset, []byte("name: berlin\n"), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for debounced event")
	}

	// Give a second (unexpected) event time to arrive.
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1: %+v", len(events), events)
	}
	if events[0].Path != preset {
		t.Errorf("event path = %q, want %q", events[0].Path, preset)
	}
	if events[0].Operation != OpCreate {
		t.Errorf("event operation = %v, want %v", events[0].Operation, OpCreate)
	}
}

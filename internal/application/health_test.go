package application

import (
	"context"
	"testing"
)

func TestHealthServiceIsHealthy(t *testing.T) {
	service := NewHealthService(nil, nil)

	if !service.IsHealthy(context.Background()) {
		t.Error("IsHealthy should return true")
	}
}

func TestHealthServiceIsReady(t *testing.T) {
	ctx := context.Background()

	if !NewHealthService(nil, nil).IsReady(ctx) {
		t.Error("service without catalog should be ready")
	}

	catalog, _ := newTestCatalog(newMockSource(), nil)
	service := NewHealthService(catalog, nil)
	if service.IsReady(ctx) {
		t.Error("IsReady should be false before the initial load")
	}

	if err := catalog.LoadAll(ctx); err != nil {
		t.Fatal(err)
	}
	if !service.IsReady(ctx) {
		t.Error("IsReady should be true after the initial load")
	}
}

func TestHealthServiceGetHealthDetails(t *testing.T) {
	ctx := context.Background()
	catalog, _ := newTestCatalog(newMockSource(), nil)
	sessions, _ := newTestSessions(SessionConfig{})
	service := NewHealthService(catalog, sessions)

	details := service.GetHealthDetails(ctx)
	if details.Ready {
		t.Error("Ready should be false before loading")
	}
	if details.Components["catalog"] != "loading" {
		t.Errorf("catalog component = %q, want loading", details.Components["catalog"])
	}

	if err := catalog.LoadPackage(ctx, "/data/roads.gpkg"); err != nil {
		t.Fatal(err)
	}
	if err := catalog.LoadAll(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := sessions.Create(ctx, "main", nil); err != nil {
		t.Fatal(err)
	}

	details = service.GetHealthDetails(ctx)
	if !details.Healthy || !details.Ready {
		t.Errorf("details = %+v, want healthy and ready", details)
	}
	if details.PackagesLoaded != 1 {
		t.Errorf("PackagesLoaded = %d, want 1", details.PackagesLoaded)
	}
	if details.SessionsActive != 1 {
		t.Errorf("SessionsActive = %d, want 1", details.SessionsActive)
	}
	if details.Components["catalog"] != "ok" || details.Components["sessions"] != "ok" {
		t.Errorf("Components = %v", details.Components)
	}
}

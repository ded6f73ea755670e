package tls

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jobrunner/mapview/internal/config"
	"github.com/jobrunner/mapview/internal/domain"
)

func TestValidate(t *testing.T) {
	valid := config.TLSConfig{
		Enabled: true,
		Domains: []string{"map.example.com"},
		Email:   "ops@example.com",
		DNS: config.TLSDNSConfig{
			SubscriptionID:    "sub",
			ResourceGroupName: "dns",
		},
	}

	tests := []struct {
		name   string
		modify func(*config.TLSConfig)
		field  string
	}{
		{"valid", func(*config.TLSConfig) {}, ""},
		{"no domains", func(c *config.TLSConfig) { c.Domains = nil }, "tls.domains"},
		{"no email", func(c *config.TLSConfig) { c.Email = "" }, "tls.email"},
		{"no subscription", func(c *config.TLSConfig) { c.DNS.SubscriptionID = "" }, "tls.dns"},
		{"no resource group", func(c *config.TLSConfig) { c.DNS.ResourceGroupName = "" }, "tls.dns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			cfg.Domains = append([]string(nil), valid.Domains...)
			tt.modify(&cfg)

			err := validate(cfg)
			if tt.field == "" {
				if err != nil {
					t.Errorf("validate() error = %v", err)
				}
				return
			}

			var cfgErr *domain.ConfigError
			if !errors.As(err, &cfgErr) || cfgErr.Field != tt.field {
				t.Errorf("validate() error = %v, want ConfigError for %s", err, tt.field)
			}
		})
	}
}

func TestDisabledManager(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	m, err := NewManager(config.TLSConfig{Enabled: false}, logger)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if m.Enabled() {
		t.Error("manager should be disabled")
	}
	if m.TLSConfig() != nil {
		t.Error("disabled manager should have no TLS config")
	}
	if err := m.ManageCertificates(t.Context()); err != nil {
		t.Errorf("ManageCertificates() error = %v", err)
	}
}

func TestNewManagerRejectsIncompleteConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewManager(config.TLSConfig{Enabled: true}, logger)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("NewManager() error = %v, want ErrInvalidInput", err)
	}
}

func TestDNSProvider(t *testing.T) {
	p := dnsProvider(config.TLSDNSConfig{SubscriptionID: "s", ResourceGroupName: "rg", ClientID: "c"})
	if p.SubscriptionId != "s" || p.ResourceGroupName != "rg" || p.ClientId != "c" {
		t.Errorf("dnsProvider() = %+v", p)
	}
}

// Package tls serves the API over HTTPS with certificates obtained by
// CertMagic through Azure DNS-01 challenges.
package tls

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/caddyserver/certmagic"
	"github.com/libdns/azure"

	"github.com/jobrunner/mapview/internal/config"
	"github.com/jobrunner/mapview/internal/domain"
)

// Manager owns the certificates of the API server.
type Manager struct {
	cfg    config.TLSConfig
	magic  *certmagic.Config
	logger *slog.Logger
}

// NewManager creates a certificate manager. With TLS disabled the manager
// serves plain HTTP.
func NewManager(cfg config.TLSConfig, logger *slog.Logger) (*Manager, error) {
	m := &Manager{cfg: cfg, logger: logger}
	if !cfg.Enabled {
		return m, nil
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	certmagic.DefaultACME.Agreed = true
	certmagic.DefaultACME.Email = cfg.Email
	if cfg.Staging {
		certmagic.DefaultACME.CA = certmagic.LetsEncryptStagingCA
	}
	if cfg.CacheDir != "" {
		certmagic.Default.Storage = &certmagic.FileStorage{Path: cfg.CacheDir}
	}
	certmagic.DefaultACME.DNS01Solver = &certmagic.DNS01Solver{
		DNSManager: certmagic.DNSManager{
			DNSProvider: dnsProvider(cfg.DNS),
		},
	}

	m.magic = certmagic.NewDefault()
	return m, nil
}

// dnsProvider builds the Azure DNS provider. An empty client ID selects the
// system assigned managed identity.
func dnsProvider(cfg config.TLSDNSConfig) *azure.Provider {
	return &azure.Provider{
		SubscriptionId:    cfg.SubscriptionID,
		ResourceGroupName: cfg.ResourceGroupName,
		ClientId:          cfg.ClientID,
	}
}

func validate(cfg config.TLSConfig) error {
	if len(cfg.Domains) == 0 {
		return &domain.ConfigError{Field: "tls.domains", Message: "TLS enabled but no domains specified"}
	}
	if cfg.Email == "" {
		return &domain.ConfigError{Field: "tls.email", Message: "TLS enabled but no email specified"}
	}
	if cfg.DNS.SubscriptionID == "" || cfg.DNS.ResourceGroupName == "" {
		return &domain.ConfigError{Field: "tls.dns", Message: "Azure DNS subscription and resource group are required"}
	}
	return nil
}

// Enabled reports whether the manager serves HTTPS.
func (m *Manager) Enabled() bool {
	return m.magic != nil
}

// ManageCertificates obtains or renews the certificates of all configured
// domains before the server starts.
func (m *Manager) ManageCertificates(ctx context.Context) error {
	if !m.Enabled() {
		return nil
	}

	m.logger.Info("obtaining certificates", "domains", m.cfg.Domains)
	if err := m.magic.ManageSync(ctx, m.cfg.Domains); err != nil {
		return fmt.Errorf("managing certificates: %w", err)
	}
	m.logger.Info("certificates obtained", "domains", m.cfg.Domains)
	return nil
}

// TLSConfig returns the TLS configuration, or nil when TLS is disabled.
func (m *Manager) TLSConfig() *tls.Config {
	if !m.Enabled() {
		return nil
	}
	return m.magic.TLSConfig()
}

// Serve runs srv until it is shut down. http.ErrServerClosed is not
// reported as an error.
func (m *Manager) Serve(srv *http.Server) error {
	var err error
	if m.Enabled() {
		m.logger.Info("starting HTTPS server", "address", srv.Addr, "domains", m.cfg.Domains)
		srv.TLSConfig = m.TLSConfig()
		err = srv.ListenAndServeTLS("", "")
	} else {
		m.logger.Info("starting HTTP server (TLS disabled)", "address", srv.Addr)
		err = srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

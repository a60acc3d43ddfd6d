package sinks

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TLS configures the client-certificate and trust settings shared by every
// sink that speaks TLS directly (webhook, Loki, Elasticsearch, OpenSearch,
// Kafka).
type TLS struct {
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify,omitempty"`
	CAFile             string `yaml:"caFile,omitempty"`
	CertFile           string `yaml:"certFile,omitempty"`
	KeyFile            string `yaml:"keyFile,omitempty"`
}

// setupTLS builds a *tls.Config from cfg. A nil or all-zero cfg yields a
// nil *tls.Config, which tells net/http (and friends) to use their default
// settings rather than an explicit, empty TLS configuration.
func setupTLS(cfg *TLS) (*tls.Config, error) {
	if cfg == nil || (!cfg.InsecureSkipVerify && cfg.CAFile == "" && cfg.CertFile == "" && cfg.KeyFile == "") {
		return nil, nil
	}

	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify} //nolint:gosec // user-configured

	if cfg.CAFile != "" {
		caCert, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("reading caFile: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("caFile %s contains no valid certificates", cfg.CAFile)
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.CertFile != "" || cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

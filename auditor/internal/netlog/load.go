package netlog

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/obsidianstack/rttaudit/auditor/internal/config"
)

const defaultFetchTimeout = 10 * time.Second

// Loader reads network logs from files or http(s) URLs.
type Loader struct {
	src    config.LogSource
	client *http.Client
}

// NewLoader builds a Loader for the given source options. The HTTP client is
// built once and reused across loads.
func NewLoader(src config.LogSource) (*Loader, error) {
	client, err := buildHTTPClient(src)
	if err != nil {
		return nil, fmt.Errorf("netlog: build http client: %w", err)
	}
	return &Loader{src: src, client: client}, nil
}

// Load reads the log at location, which is either a file path or an
// http(s) URL.
func (l *Loader) Load(ctx context.Context, location string) (*Log, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return l.fetch(ctx, location)
	}

	f, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("netlog: open: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// fetch performs an HTTP GET to url and parses the body.
func (l *Loader) fetch(ctx context.Context, url string) (*Log, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("netlog: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("netlog: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("netlog: fetch failed", "url", url, "status", resp.StatusCode)
		return nil, fmt.Errorf("netlog: unexpected status %d", resp.StatusCode)
	}
	return Parse(resp.Body)
}

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.AuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.auth.Mode {
	case "apikey":
		req = req.Clone(req.Context())
		req.Header.Set(t.auth.Header, t.auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.auth.Token())
	case "basic":
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.auth.Username, t.auth.Password())
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the source's auth and TLS settings.
func buildHTTPClient(src config.LogSource) (*http.Client, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: src.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}

	if src.Auth.Mode == "mtls" {
		cert, err := tls.LoadX509KeyPair(src.Auth.CertFile, src.Auth.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}

		if src.Auth.CAFile != "" {
			caPEM, err := os.ReadFile(src.Auth.CAFile)
			if err != nil {
				return nil, fmt.Errorf("read ca file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caPEM) {
				return nil, fmt.Errorf("no valid certs found in ca file %q", src.Auth.CAFile)
			}
			tlsCfg.RootCAs = pool
		}
	}

	timeout := src.Timeout
	if timeout == 0 {
		timeout = defaultFetchTimeout
	}

	// Start from the default transport to keep proxy, dial and idle settings.
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.TLSClientConfig = tlsCfg

	return &http.Client{
		Transport: &authRoundTripper{
			base: base,
			auth: src.Auth,
		},
		Timeout: timeout,
	}, nil
}

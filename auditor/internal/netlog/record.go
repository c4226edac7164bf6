package netlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ErrNoRecords is returned when a log holds no request records.
var ErrNoRecords = errors.New("netlog: log has no records")

// Log is one page load's network activity.
type Log struct {
	PageURL string   `json:"page_url,omitempty"`
	Records []Record `json:"records"`
}

// Record is a single network request.
type Record struct {
	RequestID         string  `json:"request_id"`
	URL               string  `json:"url"`
	Protocol          string  `json:"protocol,omitempty"` // "http/1.1", "h2", "h3", ...
	ConnectionID      int64   `json:"connection_id"`
	ConnectionReused  bool    `json:"connection_reused"`
	FromDiskCache     bool    `json:"from_disk_cache,omitempty"`
	FromServiceWorker bool    `json:"from_service_worker,omitempty"`
	StatusCode        int     `json:"status_code"`
	StartTime         float64 `json:"start_time"` // seconds
	EndTime           float64 `json:"end_time"`   // seconds
	Timing            *Timing `json:"timing,omitempty"`
}

// Timing holds resource timing phases in ms relative to RequestTime.
// A value of -1 means the phase did not happen.
type Timing struct {
	RequestTime       float64 `json:"request_time"` // seconds
	DNSStart          float64 `json:"dns_start"`
	DNSEnd            float64 `json:"dns_end"`
	ConnectStart      float64 `json:"connect_start"`
	ConnectEnd        float64 `json:"connect_end"`
	SSLStart          float64 `json:"ssl_start"`
	SSLEnd            float64 `json:"ssl_end"`
	SendStart         float64 `json:"send_start"`
	SendEnd           float64 `json:"send_end"`
	ReceiveHeadersEnd float64 `json:"receive_headers_end"`
}

// Origin returns the record's scheme://host[:port]. Default ports are
// omitted. ok is false for non-network URLs (data:, blob:, ...) and for
// URLs that do not parse.
func (r Record) Origin() (origin string, ok bool) {
	u, err := url.Parse(r.URL)
	if err != nil || u.Host == "" {
		return "", false
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return "", false
	}

	host := u.Hostname()
	port := u.Port()
	if port != "" && !isDefaultPort(u.Scheme, port) {
		return u.Scheme + "://" + net.JoinHostPort(host, port), true
	}
	if ip := net.ParseIP(host); ip != nil && ip.To4() == nil {
		host = "[" + host + "]"
	}
	return u.Scheme + "://" + host, true
}

func isDefaultPort(scheme, port string) bool {
	p, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	switch scheme {
	case "http", "ws":
		return p == 80
	case "https", "wss":
		return p == 443
	}
	return false
}

// IsSecure reports whether the request went over TLS.
func (r Record) IsSecure() bool {
	u, err := url.Parse(r.URL)
	return err == nil && (u.Scheme == "https" || u.Scheme == "wss")
}

// Parse decodes a JSON log from rd.
func Parse(rd io.Reader) (*Log, error) {
	var l Log
	if err := json.NewDecoder(rd).Decode(&l); err != nil {
		return nil, fmt.Errorf("netlog: decode: %w", err)
	}
	if len(l.Records) == 0 {
		return nil, ErrNoRecords
	}
	return &l, nil
}

// Digest returns a stable hex digest of the log's contents.
func (l *Log) Digest() string {
	d := xxhash.New()
	fmt.Fprintln(d, l.PageURL)
	for _, r := range l.Records {
		t := r.Timing
		r.Timing = nil
		fmt.Fprintf(d, "%+v", r)
		if t != nil {
			fmt.Fprintf(d, "%+v", *t)
		}
		d.Write([]byte{'\n'}) //nolint:errcheck
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// passHandler answers 200 "ok".
var passHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok")) //nolint:errcheck
})

func callWithKey(t *testing.T, h http.Handler, header, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	if key != "" {
		req.Header.Set(header, key)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestAPIKey_ModeNone_PassesThrough(t *testing.T) {
	h := APIKey("none", "x-api-key", "secret", passHandler)
	if rr := callWithKey(t, h, "x-api-key", ""); rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rr.Code)
	}
}

func TestAPIKey_EmptyKey_FailsClosed(t *testing.T) {
	h := APIKey(ModeAPIKey, "x-api-key", "", passHandler)
	for _, sent := range []string{"", "anything"} {
		rr := callWithKey(t, h, "x-api-key", sent)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("sent %q: got %d, want 401", sent, rr.Code)
		}
		if rr.Body.String() == "ok" {
			t.Errorf("sent %q: wrapped handler ran without a configured key", sent)
		}
	}
}

func TestAPIKey(t *testing.T) {
	h := APIKey(ModeAPIKey, "x-api-key", "supersecret", passHandler)

	tests := []struct {
		name   string
		header string
		key    string
		want   int
	}{
		{"correct key", "x-api-key", "supersecret", http.StatusOK},
		{"header is case-insensitive", "X-Api-Key", "supersecret", http.StatusOK},
		{"wrong key", "x-api-key", "wrong", http.StatusUnauthorized},
		{"missing key", "x-api-key", "", http.StatusUnauthorized},
		{"wrong header", "authorization", "supersecret", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := callWithKey(t, h, tc.header, tc.key)
			if rr.Code != tc.want {
				t.Errorf("status: got %d, want %d", rr.Code, tc.want)
			}
			if tc.want == http.StatusUnauthorized && rr.Body.String() == "ok" {
				t.Error("wrapped handler ran for unauthenticated request")
			}
		})
	}
}

func TestAPIKey_CustomHeader(t *testing.T) {
	h := APIKey(ModeAPIKey, "x-audit-key", "k", passHandler)
	if rr := callWithKey(t, h, "x-audit-key", "k"); rr.Code != http.StatusOK {
		t.Errorf("custom header: got %d, want 200", rr.Code)
	}
	if rr := callWithKey(t, h, "x-api-key", "k"); rr.Code != http.StatusUnauthorized {
		t.Errorf("default header: got %d, want 401", rr.Code)
	}
}

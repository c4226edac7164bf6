package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/obsidianstack/rttaudit/auditor/internal/audit"
	"github.com/obsidianstack/rttaudit/auditor/internal/netlog"
	"github.com/obsidianstack/rttaudit/auditor/internal/runner"
	"github.com/obsidianstack/rttaudit/auditor/internal/store"
	"github.com/obsidianstack/rttaudit/pkg/types"
)

// maxLogBytes caps the size of a submitted network log.
const maxLogBytes = 32 << 20

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	runner *runner.Runner
	store  *store.Store
	mux    *http.ServeMux
}

// New creates a Handler and registers all routes.
func New(rn *runner.Runner, st *store.Store) http.Handler {
	h := &Handler{runner: rn, store: st, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/meta", h.meta)
	h.mux.HandleFunc("/api/v1/audits", h.audits)
	h.mux.HandleFunc("/api/v1/audits/", h.getAudit) // subtree, extracts {id}

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, HealthResponse{Status: "ok", ReportCount: len(h.store.List())})
}

// meta returns GET /api/v1/meta.
func (h *Handler) meta(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	reg := h.runner.Registry()
	b := reg.Bundle(r.URL.Query().Get("locale"))
	jsonResp(w, http.StatusOK, MetaResponse{
		ID:                audit.Meta.ID,
		Title:             audit.Meta.Title(b),
		Description:       audit.Meta.Description(b),
		ScoreDisplayMode:  audit.Meta.ScoreDisplayMode,
		RequiredArtifacts: audit.Meta.RequiredArtifacts,
		Locale:            b.Locale(),
		Locales:           reg.Locales(),
	})
}

// audits dispatches /api/v1/audits by method.
func (h *Handler) audits(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		reports := h.store.List()
		if reports == nil {
			reports = []*types.Report{}
		}
		jsonResp(w, http.StatusOK, reports)
	case http.MethodPost:
		h.runAudit(w, r)
	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// runAudit handles POST /api/v1/audits.
func (h *Handler) runAudit(w http.ResponseWriter, r *http.Request) {
	l, err := netlog.Parse(http.MaxBytesReader(w, r.Body, maxLogBytes))
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := h.runner.Run(r.Context(), l, r.URL.Query().Get("locale"))
	if err != nil {
		if r.Context().Err() != nil {
			slog.Debug("api: audit abandoned by client", "err", err)
			return
		}
		slog.Warn("api: audit failed", "page_url", l.PageURL, "err", err)
		jsonErr(w, http.StatusBadGateway, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, rep)
}

// getAudit returns GET /api/v1/audits/{id}.
func (h *Handler) getAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/audits/")
	if id == "" {
		h.audits(w, r)
		return
	}

	rep, ok := h.store.Get(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "report not found")
		return
	}
	jsonResp(w, http.StatusOK, rep)
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

package restserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/khlaifiabilel/dem4water/internal/catalog"
	"github.com/khlaifiabilel/dem4water/internal/daminfo"
	"github.com/khlaifiabilel/dem4water/internal/report"
	"github.com/khlaifiabilel/dem4water/pkg/migrate"
	"github.com/khlaifiabilel/dem4water/pkg/responseformat"
)

const maxRunsLimit = 1000

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	store     catalog.Store
	formatter *responseformat.Formatter
	logger    *zap.SugaredLogger
}

// NewHandlers creates a new handlers instance
func NewHandlers(store catalog.Store, logger *zap.SugaredLogger) *Handlers {
	return &Handlers{
		store:     store,
		formatter: responseformat.NewFormatter(),
		logger:    logger,
	}
}

// write encodes v as JSON, or MessagePack when the client asks for it
func (h *Handlers) write(w http.ResponseWriter, req *http.Request, v any) {
	if err := h.formatter.WriteResponse(w, req, v); err != nil {
		h.logger.Errorf("error encoding response: %v", err)
	}
}

func (h *Handlers) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	h.logger.Errorf("catalog error: %v", err)
	http.Error(w, "error reading catalog", http.StatusInternalServerError)
}

// ListRuns returns the most recent runs, ?limit= caps the count
func (h *Handlers) ListRuns(w http.ResponseWriter, req *http.Request) {
	limit := 100
	if v := req.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.store.ListRuns(req.Context(), limit)
	if err != nil {
		h.storeError(w, err)
		return
	}
	if runs == nil {
		runs = []catalog.Run{}
	}
	h.write(w, req, runs)
}

// GetRun returns one run
func (h *Handlers) GetRun(w http.ResponseWriter, req *http.Request) {
	run, err := h.store.GetRun(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		h.storeError(w, err)
		return
	}
	h.write(w, req, run)
}

// GetRunWindows returns the scanned windows of a run
func (h *Handlers) GetRunWindows(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	if _, err := h.store.GetRun(req.Context(), id); err != nil {
		h.storeError(w, err)
		return
	}
	windows, err := h.store.Windows(req.Context(), id)
	if err != nil {
		h.storeError(w, err)
		return
	}
	if windows == nil {
		windows = []catalog.WindowRow{}
	}
	h.write(w, req, windows)
}

// GetDamModel returns the latest model of a dam in the JSON model file format
func (h *Handlers) GetDamModel(w http.ResponseWriter, req *http.Request) {
	run, err := h.store.LatestForDam(req.Context(), mux.Vars(req)["dam"])
	if err != nil {
		h.storeError(w, err)
		return
	}
	info := &daminfo.DamInfo{ID: run.DamID, Name: run.DamName, Elevation: run.DamElevation}
	h.write(w, req, report.NewModelDocument(info, run.Model()))
}

// healthResponse is the /healthz body
type healthResponse struct {
	Status string         `json:"status"`
	Schema migrate.Status `json:"schema"`
}

// Health reports that the server is up and the catalog schema it runs on.
// A catalog with pending migrations reports "degraded" with a 503.
func (h *Handlers) Health(w http.ResponseWriter, req *http.Request) {
	schema, err := h.store.Schema(req.Context())
	if err != nil {
		h.logger.Errorf("error reading catalog schema: %v", err)
		http.Error(w, "error reading catalog schema", http.StatusServiceUnavailable)
		return
	}

	resp, status := healthResponse{Status: "ok", Schema: schema}, http.StatusOK
	if !schema.UpToDate() {
		resp.Status, status = "degraded", http.StatusServiceUnavailable
	}
	if err := h.formatter.WriteStatus(w, req, status, resp); err != nil {
		h.logger.Errorf("error encoding response: %v", err)
	}
}

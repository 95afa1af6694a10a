// Package handlers provides HTTP request handlers for the drugbase API endpoints.
// This file implements the HTTPHandler interface with dependency injection.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/giygas/drugbase-api/interfaces"
	"github.com/giygas/drugbase-api/logging"
	"github.com/giygas/drugbase-api/store"
	"github.com/giygas/drugbase-api/validation"
)

var serverStartTime = time.Now()

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	catalog       interfaces.Catalog
	validator     interfaces.DataValidator
	healthChecker interfaces.HealthChecker
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(catalog interfaces.Catalog, validator interfaces.DataValidator, healthChecker interfaces.HealthChecker) interfaces.HTTPHandler {
	return &HTTPHandlerImpl{
		catalog:       catalog,
		validator:     validator,
		healthChecker: healthChecker,
	}
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status string         `json:"status"`
	Uptime string         `json:"uptime"`
	Data   map[string]any `json:"data"`
	System map[string]any `json:"system"`
}

// dataResponse is the envelope of every listing and search
type dataResponse[T any] struct {
	Data []T `json:"data"`
}

// RespondWithJSON writes a JSON response
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	h.RespondWithJSON(w, code, errorResponse)
}

// respondData writes {"data": rows}, never {"data": null}
func respondData[T any](h *HTTPHandlerImpl, w http.ResponseWriter, rows []T) {
	if rows == nil {
		rows = []T{}
	}
	h.RespondWithJSON(w, http.StatusOK, dataResponse[T]{Data: rows})
}

// respondStoreError maps storage and validation failures onto HTTP statuses
func (h *HTTPHandlerImpl) respondStoreError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	switch {
	case errors.Is(err, validation.ErrInvalidInput), errors.Is(err, store.ErrInvalidArgument):
		logging.Warn("Rejected request", "operation", operation, "path", r.URL.Path, "error", err)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrConstraint):
		logging.Warn("Constraint violation", "operation", operation, "path", r.URL.Path, "error", err)
		h.RespondWithError(w, http.StatusConflict, "The request conflicts with existing data or references missing rows")
	case errors.Is(err, store.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		logging.Error("Storage unavailable", "operation", operation, "path", r.URL.Path, "error", err)
		h.RespondWithError(w, http.StatusServiceUnavailable, "Storage is temporarily unavailable, try again later")
	default:
		logging.Error("Request failed", "operation", operation, "path", r.URL.Path, "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// pathParam returns a decoded URL parameter. chi hands out the raw segment
// when the request path carries escapes that net/url keeps in RawPath.
func pathParam(r *http.Request, key string) string {
	value := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return value
	}
	if decoded, err := url.PathUnescape(value); err == nil {
		return decoded
	}
	return value
}

// parseCursor reads id_from. ok is false for malformed values, which the
// search endpoints answer with an empty page.
func parseCursor(r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id_from")
	idFrom, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		logging.Warn("Unusual user input", "id_from", raw, "path", r.URL.Path)
		return 0, false
	}
	return idFrom, true
}

// pageSize honours ?size=compact
func pageSize(r *http.Request) int {
	if strings.EqualFold(r.URL.Query().Get("size"), "compact") {
		return store.CompactPageSize
	}
	return store.PageSize
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}

// Home answers the root path
func (h *HTTPHandlerImpl) Home(w http.ResponseWriter, r *http.Request) {
	h.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "This is the drugbase API"})
}

// DrugSearch serves /Drug_Search/{id_from}/{query}
func (h *HTTPHandlerImpl) DrugSearch(w http.ResponseWriter, r *http.Request) {
	idFrom, ok := parseCursor(r)
	if !ok {
		respondData[any](h, w, nil)
		return
	}

	query := pathParam(r, "query")
	if err := h.validator.ValidateInput(query); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.catalog.DrugSearch(r.Context(), idFrom, query, pageSize(r))
	if err != nil {
		h.respondStoreError(w, r, "drug_search", err)
		return
	}
	respondData(h, w, rows)
}

// DiseaseSearch serves /Disease_Search/{id_from}/{query}
func (h *HTTPHandlerImpl) DiseaseSearch(w http.ResponseWriter, r *http.Request) {
	idFrom, ok := parseCursor(r)
	if !ok {
		respondData[any](h, w, nil)
		return
	}

	query := pathParam(r, "query")
	if err := h.validator.ValidateInput(query); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.catalog.DiseaseSearch(r.Context(), idFrom, query, pageSize(r))
	if err != nil {
		h.respondStoreError(w, r, "disease_search", err)
		return
	}
	respondData(h, w, rows)
}

// MultiDiseaseTreatment serves /Multi_Disease_Treatment/{id_from}[/{min_diseases}]
func (h *HTTPHandlerImpl) MultiDiseaseTreatment(w http.ResponseWriter, r *http.Request) {
	idFrom, ok := parseCursor(r)
	if !ok {
		respondData[any](h, w, nil)
		return
	}

	minDiseases := store.DefaultMinDiseases
	if raw := chi.URLParam(r, "min_diseases"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			logging.Warn("Unusual user input", "min_diseases", raw, "path", r.URL.Path)
		} else {
			minDiseases = n
		}
	}

	rows, err := h.catalog.MultiDiseaseTreatment(r.Context(), idFrom, minDiseases)
	if err != nil {
		h.respondStoreError(w, r, "multi_disease_treatment", err)
		return
	}
	respondData(h, w, rows)
}

// DrugDescription serves /Drug_Description/{name}
func (h *HTTPHandlerImpl) DrugDescription(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	if err := h.validator.ValidateInput(name); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	purposes, err := h.catalog.DrugDescription(r.Context(), name)
	if err != nil {
		h.respondStoreError(w, r, "drug_description", err)
		return
	}
	respondData(h, w, purposes)
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, data, httpStatus := h.healthChecker.HealthCheck(r.Context())

	// Get memory statistics
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status: status,
		Uptime: formatUptimeHuman(time.Since(serverStartTime)),
		Data:   data,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": int(m.Alloc / 1024 / 1024),
				"sys_mb":   int(m.Sys / 1024 / 1024),
				"num_gc":   m.NumGC,
			},
		},
	}

	h.RespondWithJSON(w, httpStatus, response)
}

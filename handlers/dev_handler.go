package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/giygas/drugbase-api/entities"
	"github.com/giygas/drugbase-api/logging"
)

// Development endpoints. They are mounted behind the dev guard in the server
// package and take their arguments from the query string.

func (h *HTTPHandlerImpl) serveList(w http.ResponseWriter, r *http.Request, operation string,
	list func(context.Context) ([]entities.EntityRow, error)) {
	rows, err := list(r.Context())
	if err != nil {
		h.respondStoreError(w, r, operation, err)
		return
	}
	respondData(h, w, rows)
}

func (h *HTTPHandlerImpl) ListManufacturers(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, "list_manufacturers", h.catalog.ListManufacturers)
}

func (h *HTTPHandlerImpl) ListDiseases(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, "list_diseases", h.catalog.ListDiseases)
}

func (h *HTTPHandlerImpl) ListDrugs(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, "list_drugs", h.catalog.ListDrugs)
}

func (h *HTTPHandlerImpl) ListGenerics(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, "list_generics", h.catalog.ListGenerics)
}

// Integrity reports the consistency gaps of the catalog
func (h *HTTPHandlerImpl) Integrity(w http.ResponseWriter, r *http.Request) {
	facts, err := h.catalog.IntegrityFacts(r.Context())
	if err != nil {
		h.respondStoreError(w, r, "integrity", err)
		return
	}
	h.RespondWithJSON(w, http.StatusOK, h.validator.Report(facts))
}

// queryParams reads and checks query string arguments, remembering the first
// problem so handlers can validate everything before touching storage
type queryParams struct {
	h   *HTTPHandlerImpl
	r   *http.Request
	err error
}

func (p *queryParams) fail(format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf(format, args...)
	}
}

// name returns a required, validated text argument
func (p *queryParams) name(key string) string {
	value := p.r.URL.Query().Get(key)
	if strings.TrimSpace(value) == "" {
		p.fail("missing required parameter %q", key)
		return ""
	}
	if err := p.h.validator.ValidateInput(value); err != nil {
		p.fail("parameter %q: %v", key, err)
	}
	return value
}

// text returns an optional, validated text argument
func (p *queryParams) text(key string) string {
	value := p.r.URL.Query().Get(key)
	if value == "" {
		return ""
	}
	if err := p.h.validator.ValidateInput(value); err != nil {
		p.fail("parameter %q: %v", key, err)
	}
	return value
}

// id returns a required non-negative integer argument
func (p *queryParams) id(key string) int64 {
	raw := p.r.URL.Query().Get(key)
	if raw == "" {
		p.fail("missing required parameter %q", key)
		return 0
	}
	id, err := p.h.validator.ValidateID(raw)
	if err != nil {
		p.fail("parameter %q: %v", key, err)
	}
	return id
}

// optionalInt returns nil when the argument is absent
func (p *queryParams) optionalInt(key string) *int64 {
	raw := p.r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 0 {
		p.fail("parameter %q must be a non-negative integer, got %q", key, raw)
		return nil
	}
	return &n
}

func (h *HTTPHandlerImpl) params(r *http.Request) *queryParams {
	return &queryParams{h: h, r: r}
}

func (h *HTTPHandlerImpl) respondCreated(w http.ResponseWriter, r *http.Request, operation string, id int64, err error) {
	if err != nil {
		h.respondStoreError(w, r, operation, err)
		return
	}
	logging.Info("Catalog row created", "operation", operation, "id", id)
	h.RespondWithJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

// CreateManufacturer serves POST /dev/manufacturer?name=
func (h *HTTPHandlerImpl) CreateManufacturer(w http.ResponseWriter, r *http.Request) {
	p := h.params(r)
	name := p.name("name")
	if p.err != nil {
		h.RespondWithError(w, http.StatusBadRequest, p.err.Error())
		return
	}

	id, err := h.catalog.InsertManufacturer(r.Context(), name)
	h.respondCreated(w, r, "insert_manufacturer", id, err)
}

// CreateDrug serves POST /dev/drug?name=&price=&purpose=&man_id=
func (h *HTTPHandlerImpl) CreateDrug(w http.ResponseWriter, r *http.Request) {
	p := h.params(r)
	drug := entities.Drug{
		Name:    p.name("name"),
		Price:   p.optionalInt("price"),
		Purpose: p.text("purpose"),
		ManID:   p.optionalInt("man_id"),
	}
	if p.err != nil {
		h.RespondWithError(w, http.StatusBadRequest, p.err.Error())
		return
	}

	id, err := h.catalog.InsertDrug(r.Context(), drug)
	h.respondCreated(w, r, "insert_drug", id, err)
}

// CreateGeneric serves POST /dev/generic?name=&price=&purpose=
func (h *HTTPHandlerImpl) CreateGeneric(w http.ResponseWriter, r *http.Request) {
	p := h.params(r)
	generic := entities.Generic{
		Name:    p.name("name"),
		Price:   p.optionalInt("price"),
		Purpose: p.text("purpose"),
	}
	if p.err != nil {
		h.RespondWithError(w, http.StatusBadRequest, p.err.Error())
		return
	}

	id, err := h.catalog.InsertGeneric(r.Context(), generic)
	h.respondCreated(w, r, "insert_generic", id, err)
}

// CreateDisease serves POST /dev/disease?name=
func (h *HTTPHandlerImpl) CreateDisease(w http.ResponseWriter, r *http.Request) {
	p := h.params(r)
	name := p.name("name")
	if p.err != nil {
		h.RespondWithError(w, http.StatusBadRequest, p.err.Error())
		return
	}

	id, err := h.catalog.InsertDisease(r.Context(), name)
	h.respondCreated(w, r, "insert_disease", id, err)
}

// CreateTreatment serves POST /dev/treatment?disease_id=&drug_id=&gen_id=
func (h *HTTPHandlerImpl) CreateTreatment(w http.ResponseWriter, r *http.Request) {
	p := h.params(r)
	treatment := entities.Treatment{
		DiseaseID: p.id("disease_id"),
		DrugID:    p.id("drug_id"),
		GenID:     p.id("gen_id"),
	}
	if p.err != nil {
		h.RespondWithError(w, http.StatusBadRequest, p.err.Error())
		return
	}

	if err := h.catalog.InsertTreatment(r.Context(), treatment); err != nil {
		h.respondStoreError(w, r, "insert_treatment", err)
		return
	}
	h.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// RenameManufacturer serves PUT /dev/manufacturer/{man_id}?new_name=
func (h *HTTPHandlerImpl) RenameManufacturer(w http.ResponseWriter, r *http.Request) {
	id, err := h.validator.ValidateID(chi.URLParam(r, "man_id"))
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	p := h.params(r)
	name := p.name("new_name")
	if p.err != nil {
		h.RespondWithError(w, http.StatusBadRequest, p.err.Error())
		return
	}

	found, err := h.catalog.RenameManufacturer(r.Context(), id, name)
	if err != nil {
		h.respondStoreError(w, r, "rename_manufacturer", err)
		return
	}
	h.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": found})
}

// DeleteDrug serves DELETE /dev/drug/{drug_id}
func (h *HTTPHandlerImpl) DeleteDrug(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "drug_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("invalid drug id %q", raw))
		return
	}

	found, err := h.catalog.DeleteDrug(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, r, "delete_drug", err)
		return
	}
	if found {
		logging.Info("Drug deleted", "drug_id", id)
	}
	h.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": found})
}

package handler

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/iho/financeager/internal/adapter/http/dto"
	"github.com/iho/financeager/internal/domain"
	"github.com/iho/financeager/internal/usecase"
)

// EntryHandler handles period and entry requests.
type EntryHandler struct {
	ledger usecase.LedgerService
	logger zerolog.Logger
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(ledger usecase.LedgerService, logger zerolog.Logger) *EntryHandler {
	return &EntryHandler{ledger: ledger, logger: logger}
}

// ListPeriods handles GET /periods.
func (h *EntryHandler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.ledger.ListPeriods(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, domain.Response{Periods: periods})
}

// List handles GET /periods/{period}.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	elements, err := h.ledger.ListEntries(r.Context(), usecase.ListEntriesInput{
		Period:   periodParam(r),
		Name:     query.Get("name"),
		Category: query.Get("category"),
		Date:     query.Get("date"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, domain.Response{Elements: elements})
}

// Add handles POST /periods/{period}.
func (h *EntryHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req dto.AddEntryRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Value == nil {
		h.fail(w, r, fmt.Errorf("%w: value is required", domain.ErrInvalidParams))
		return
	}

	id, err := h.ledger.AddEntry(r.Context(), req.ToUseCaseInput(periodParam(r)))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, domain.Response{ID: &id})
}

// Get handles GET /periods/{period}/{eid}.
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := eidParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	record, err := h.ledger.GetEntry(r.Context(), periodParam(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, domain.Response{Element: record})
}

// Update handles PATCH /periods/{period}/{eid}.
func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := eidParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req dto.UpdateEntryRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.ledger.UpdateEntry(r.Context(), req.ToUseCaseInput(periodParam(r), id)); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, domain.Response{ID: &id})
}

// Remove handles DELETE /periods/{period}/{eid}.
func (h *EntryHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := eidParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.ledger.RemoveEntry(r.Context(), periodParam(r), id); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, domain.Response{ID: &id})
}

func (h *EntryHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if mapDomainError(err) == http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	}
	writeDomainError(w, err)
}

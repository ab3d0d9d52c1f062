package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iho/financeager/internal/adapter/http/dto"
	"github.com/iho/financeager/internal/domain"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: 3", domain.ErrEntryNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: 2023", domain.ErrPeriodNotFound), http.StatusNotFound},
		{&domain.ValidationError{Field: "name", Reason: "name cannot be empty"}, http.StatusBadRequest},
		{fmt.Errorf("%w: value is required", domain.ErrInvalidParams), http.StatusBadRequest},
		{errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := mapDomainError(tt.err); got != tt.want {
			t.Errorf("mapDomainError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWriteDomainErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, errors.New("connection to 10.0.0.3 refused"))

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if rec.Code != http.StatusInternalServerError || resp.Error != "internal error" {
		t.Fatalf("unexpected response %d %+v", rec.Code, resp)
	}
}

func TestDecodeBody(t *testing.T) {
	var req dto.AddEntryRequest
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"lunch","value":"-12.5"}`))
	if err := decodeBody(r, &req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Value == nil || *req.Value != -12.5 {
		t.Fatalf("expected value -12.5, got %v", req.Value)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	if err := decodeBody(r, &req); !errors.Is(err, domain.ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams for broken JSON, got %v", err)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"value":"lots"}`))
	if err := decodeBody(r, &req); !errors.Is(err, domain.ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams for non-numeric value, got %v", err)
	}
}

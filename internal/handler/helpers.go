package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tekinformatica/painel-go/internal/domain"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error  string         `json:"error"`
	Field  string         `json:"field,omitempty"`
	Line   int            `json:"line,omitempty"`
	Notice *domain.Notice `json:"notice,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  "invalid request body",
			Notice: &domain.Notice{Title: "Requisição inválida", Description: err.Error(), Variant: "destructive"},
		})
		return false
	}
	return true
}

// customerIDParam reads {id}. Customer ids are uuids, so anything else
// cannot exist.
func customerIDParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", &domain.ErrNotFound{Resource: "cliente", ID: raw}
	}
	return id.String(), nil
}

func parseLimit(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// handleServiceError maps domain errors to HTTP responses. title is the
// notice shown to the operator, e.g. "Erro ao criar cliente".
func handleServiceError(w http.ResponseWriter, err error, title string, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout
	var validation *domain.ErrValidation
	var unauthorized *domain.ErrUnauthorized
	var conflict *domain.ErrConflict
	var partial *domain.ErrPartialRenewal
	var external *domain.ErrExternalService

	notice := domain.FailureNotice(title, err)
	resp := errorResponse{Error: err.Error(), Notice: &notice}
	status := http.StatusInternalServerError

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		notice.Description = validation.Message
		if validation.Line > 0 {
			notice.Description = fmt.Sprintf("Linha %d: %s", validation.Line, validation.Message)
		}
		resp.Field, resp.Line = validation.Field, validation.Line
		status = http.StatusBadRequest
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		status = http.StatusNotFound
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("error", err.Error()))
		status = http.StatusConflict
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		status = http.StatusUnauthorized
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		status = http.StatusServiceUnavailable
	case errors.As(err, &timeout):
		logger.Error("request timeout", zap.Error(err))
		status = http.StatusGatewayTimeout
	case errors.As(err, &partial):
		logger.Error("partial renewal", zap.String("customer_id", partial.CustomerID), zap.Error(err))
		notice.Description = fmt.Sprintf("Vencimento atualizado para %s, mas o log de recarga não foi gravado: %v",
			partial.DueAfter.Format(domain.DisplayDateLayout), partial.Err)
		status = http.StatusBadGateway
	case errors.As(err, &external):
		logger.Error("backend failure", zap.String("service", external.Service), zap.Error(err))
		notice.Description = external.Err.Error()
		status = http.StatusBadGateway
	default:
		logger.Error("unhandled error", zap.Error(err))
		resp.Error = "internal server error"
	}
	writeJSON(w, status, resp)
}

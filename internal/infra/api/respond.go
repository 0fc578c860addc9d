package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/myagiz61/backend/internal/domain"
	"github.com/myagiz61/backend/internal/infra/logging"
)

type errorBody struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses. Upstream and internal
// details are logged, never returned.
func writeError(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger, err error) {
	var verr *validationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "INVALID_REQUEST", Message: verr.msg, Fields: verr.fields})
		return
	}
	l := logging.With(r.Context(), logger)
	if f, ok := domain.FaultOf(err); ok {
		switch f.Class {
		case domain.FaultValidation:
			status := http.StatusBadRequest
			if errors.Is(f, domain.ErrForbidden) {
				status = http.StatusForbidden
			}
			writeJSON(w, status, errorBody{Code: f.Code, Message: f.Message})
		case domain.FaultUpstream:
			l.Warn().Err(err).Msg("upstream fault")
			writeJSON(w, http.StatusBadGateway, errorBody{Code: f.Code, Message: f.Message})
		default:
			l.Error().Err(err).Msg("integrity fault")
			writeJSON(w, http.StatusInternalServerError, errorBody{Code: f.Code, Message: "request could not be completed"})
		}
		return
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Code: "NOT_FOUND", Message: "not found"})
	case errors.Is(err, domain.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "INVALID_ARGUMENT", Message: "invalid argument"})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Code: "FORBIDDEN", Message: "forbidden"})
	case errors.Is(err, domain.ErrLockBusy):
		writeJSON(w, http.StatusConflict, errorBody{Code: "BUSY", Message: "a request for this purchase is already in progress"})
	default:
		l.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Code: "INTERNAL", Message: "internal error"})
	}
}

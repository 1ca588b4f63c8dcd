package service

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/castlemilk/salahtime/backend/internal/auth"
	"github.com/castlemilk/salahtime/backend/internal/extraction"
	"github.com/castlemilk/salahtime/backend/internal/store"
)

// errorBody is the JSON error envelope returned by every endpoint.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// httpError maps a handler error to a status code and a user-facing detail.
func httpError(err error) (int, errorDetail) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, errorDetail{Code: "UNAUTHENTICATED", Message: err.Error()}
	case errors.Is(err, auth.ErrPermissionDenied):
		return http.StatusForbidden, errorDetail{Code: "PERMISSION_DENIED", Message: err.Error()}
	case errors.Is(err, store.ErrInvalidPageToken):
		return http.StatusBadRequest, errorDetail{Code: string(extraction.ErrInvalidRequest), Message: err.Error()}
	case errors.Is(err, store.ErrNotFound), errors.Is(err, extraction.ErrJobNotFound):
		return http.StatusNotFound, errorDetail{Code: "NOT_FOUND", Message: err.Error()}
	}

	var extErr *extraction.ExtractionError
	if !errors.As(err, &extErr) {
		return http.StatusInternalServerError, errorDetail{Code: "INTERNAL", Message: "internal error"}
	}

	detail := errorDetail{Code: string(extErr.Code), Message: extErr.Message}
	switch extErr.Code {
	case extraction.ErrInvalidRequest:
		return http.StatusBadRequest, detail
	case extraction.ErrUnsupportedFormat, extraction.ErrInvalidDocument:
		return http.StatusUnprocessableEntity, detail
	case extraction.ErrRecognitionUnavailable, extraction.ErrConfiguration:
		return http.StatusServiceUnavailable, detail
	case extraction.ErrRateLimited:
		return http.StatusTooManyRequests, detail
	case extraction.ErrNetwork, extraction.ErrMalformedResponse:
		return http.StatusBadGateway, detail
	default:
		return http.StatusInternalServerError, detail
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := httpError(err)
	if status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Int("status", status).Msg("request failed")
	} else {
		hlog.FromRequest(r).Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	writeJSON(w, status, errorBody{Error: detail})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

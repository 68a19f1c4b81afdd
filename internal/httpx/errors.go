package httpx

import (
	"errors"
	"net/http"

	"github.com/georgesalomon/umarket2/internal/auth"
	"github.com/georgesalomon/umarket2/internal/logger"
	"github.com/georgesalomon/umarket2/internal/market"
	"github.com/georgesalomon/umarket2/internal/store"
)

type errorResp struct {
	Error  string `json:"error"`
	Field  string `json:"field,omitempty"`
	Status int    `json:"store_status,omitempty"`
}

// statusOf maps a domain or store error onto its HTTP status.
func statusOf(err error) int {
	var se *store.StoreError
	switch {
	case errors.Is(err, market.ErrInvalidPayload):
		return http.StatusUnprocessableEntity
	case errors.Is(err, market.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized
	case errors.Is(err, market.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, market.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotConfigured):
		return http.StatusInternalServerError
	case errors.As(err, &se):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	log := logger.FromContext(r.Context())
	resp := errorResp{Error: err.Error()}

	var ve *market.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	if code >= http.StatusInternalServerError {
		log.Error("request failed", "status", code, "error", err)
		var se *store.StoreError
		switch {
		case errors.As(err, &se):
			resp = errorResp{Error: "store request failed", Status: se.Status}
		case code == http.StatusInternalServerError && !errors.Is(err, store.ErrNotConfigured):
			resp.Error = "internal error"
		}
	} else {
		log.Debug("request rejected", "status", code, "error", err)
	}
	writeJSON(w, code, resp)
}

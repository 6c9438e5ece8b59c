package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/HyperSlump/shop-sub000/internal/domain/errs"
	httperrors "github.com/HyperSlump/shop-sub000/internal/transport/http/errors"
)

// Storefront clients send whole product objects as cart entries, so unknown
// fields are tolerated.
func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.WriteError(w, http.StatusBadRequest, code, message)
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.WriteError(w, http.StatusInternalServerError, code, message)
}

// writeServiceError maps domain errors onto the JSON error envelope. Upstream
// failures keep the provider's message so the storefront can show it.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var upstream *errs.UpstreamError
	switch {
	case errors.Is(err, errs.ErrInvalidRequest):
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
	case errors.As(err, &upstream):
		message := upstream.Message()
		if message == "" {
			message = fallback
		}
		writeInternal(w, "UPSTREAM_ERROR", message)
	default:
		writeInternal(w, "INTERNAL_ERROR", fallback)
	}
}

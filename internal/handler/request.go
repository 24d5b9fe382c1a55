package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"notes-server/internal/domain"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object from the request body. Malformed or
// oversized bodies are reported as validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, strict bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if strict {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return domain.NewValidationError("request body is required")
		case errors.As(err, &maxErr):
			return domain.NewValidationError("request body too large")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
			return domain.NewValidationError("invalid field", domain.FieldError{Field: field, Message: "cannot be updated"})
		default:
			return domain.NewValidationError("invalid request body")
		}
	}

	return nil
}

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"loan-portal/domain"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error  string            `json:"error"`
	Fields []fieldViolation `json:"fields,omitempty"`
}

type fieldViolation struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// writeJSON encodes into a buffer first so a failed encode never leaves a
// half-written 200 behind.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		logger.Error("encoding response", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Warn("writing response", "error", err)
	}
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	resp := errorResponse{Error: err.Error()}

	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
		resp.Fields = violations(err)
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	default:
		logger.Error("request failed", "error", err)
		resp.Error = "internal server error"
	}

	writeJSON(w, logger, status, resp)
}

func violations(err error) []fieldViolation {
	var out []fieldViolation
	var walk func(error)
	walk = func(e error) {
		if ve, ok := e.(*domain.ValidationError); ok {
			out = append(out, fieldViolation{Field: ve.Field, Rule: ve.Rule})
			return
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			if inner := u.Unwrap(); inner != nil {
				walk(inner)
			}
		}
	}
	walk(err)
	return out
}

// decodeJSON reads a JSON request body into v, writing the error response
// itself when it returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, logger *slog.Logger, v any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			writeJSON(w, logger, http.StatusUnsupportedMediaType,
				errorResponse{Error: "Content-Type must be application/json"})
			return false
		}
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		logger.Debug("decoding request body", "error", err)
		writeJSON(w, logger, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

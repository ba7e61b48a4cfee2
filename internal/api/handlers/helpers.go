package handlers

import (
	"biggest-circle-service/internal/api/dto"
	"biggest-circle-service/internal/domain"
	"biggest-circle-service/internal/platform/obs"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 4 << 20

// statusClientClosedRequest is the nginx convention for a request the client
// abandoned before the response was ready.
const statusClientClosedRequest = 499

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obs.L().Warn("encode failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, dto.ErrorResponse{Error: msg})
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// decodeBody strictly decodes exactly one JSON object into v. It writes the
// 400 response itself and reports false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

// statusFor maps pipeline error kinds to HTTP statuses. The engine's own
// time budget wraps ErrNumericalDegeneracy and stays a 422.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNumericalDegeneracy):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrEmptyResult):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError reports a pipeline failure. Client-facing kinds carry
// the error text; internal failures are logged and masked.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		obs.L().Error(op+" failed",
			zap.String("req_id", obs.RequestID(r.Context())),
			zap.Error(err),
		)
		writeError(w, r, status, "internal server error")
		return
	case statusClientClosedRequest, http.StatusServiceUnavailable:
		obs.L().Info(op+" stopped",
			zap.String("req_id", obs.RequestID(r.Context())),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeError(w, r, status, err.Error())
}

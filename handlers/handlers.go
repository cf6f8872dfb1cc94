// Package handlers provides HTTP request handlers for the prescription API:
// transcript processing, document rendering and delivery, medicine lookup,
// catalog export and health checks.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/harithra-blueberry/aiprescription/dispatch"
	"github.com/harithra-blueberry/aiprescription/logging"
	"github.com/harithra-blueberry/aiprescription/prescription"
	"github.com/harithra-blueberry/aiprescription/renderer"
	"github.com/harithra-blueberry/aiprescription/storage"
	"github.com/harithra-blueberry/aiprescription/transcriber"
	"github.com/harithra-blueberry/aiprescription/validation"
)

// RespondWithJSON writes a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	w.Write(data)
}

// RespondWithError writes a JSON error response
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	})
}

// RespondWithFile writes a binary download
func RespondWithFile(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

var (
	transcriberErrors = []error{
		transcriber.ErrNotConfigured, transcriber.ErrEmptyCapture, transcriber.ErrCaptureTooLarge,
		transcriber.ErrTimeout, transcriber.ErrUnintelligible, transcriber.ErrUnavailable,
	}
	storageErrors  = []error{storage.ErrNotConfigured, storage.ErrEmptyKey, storage.ErrInvalidKey}
	dispatchErrors = []error{dispatch.ErrNotConfigured, dispatch.ErrRejected, dispatch.ErrUnavailable}
)

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// errorStatus maps a pipeline error to an HTTP status code. Errors that
// match no known sentinel get fallback.
func errorStatus(err error, fallback int) int {
	switch {
	case errors.Is(err, validation.ErrInvalidInput), errors.Is(err, validation.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, prescription.ErrBatchTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, prescription.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, renderer.ErrRender):
		return http.StatusInternalServerError
	case isAny(err, transcriberErrors):
		return transcriber.MapHTTPStatus(err)
	case isAny(err, storageErrors):
		return storage.MapHTTPStatus(err)
	case isAny(err, dispatchErrors):
		return dispatch.MapHTTPStatus(err)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return fallback
	}
}

// respondWithPipelineError logs err and writes its mapped status. Internal
// and upstream failures hide their detail from the client.
func respondWithPipelineError(w http.ResponseWriter, r *http.Request, err error, fallback int) {
	code := errorStatus(err, fallback)
	switch {
	case code == http.StatusInternalServerError, code == http.StatusBadGateway:
		logging.Error("Prescription request failed", "path", r.URL.Path, "status", code, "error", err)
		RespondWithError(w, code, "Request could not be completed")
	case code >= http.StatusInternalServerError:
		logging.Error("Prescription request failed", "path", r.URL.Path, "status", code, "error", err)
		RespondWithError(w, code, err.Error())
	default:
		logging.Warn("Prescription request rejected", "path", r.URL.Path, "status", code, "error", err)
		RespondWithError(w, code, err.Error())
	}
}

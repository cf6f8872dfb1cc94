package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/harithra-blueberry/aiprescription/interfaces"
	"github.com/harithra-blueberry/aiprescription/logging"
	"github.com/harithra-blueberry/aiprescription/medicineparser"
	"github.com/harithra-blueberry/aiprescription/prescription"
	"github.com/harithra-blueberry/aiprescription/resolver"
	"github.com/harithra-blueberry/aiprescription/validation"
)

const contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PrescriptionService is the pipeline behind the prescription endpoints.
type PrescriptionService interface {
	Process(transcript string) prescription.Record
	ProcessBatch(ctx context.Context, transcripts []string) ([]prescription.Record, error)
	ProcessAudio(ctx context.Context, audio []byte, contentType string) (prescription.Record, error)
	Format(rec prescription.Record) string
	Render(rec prescription.Record) ([]byte, string, error)
	Deliver(ctx context.Context, rec prescription.Record, to string) (prescription.Delivery, error)
	Resolve(query string) resolver.Result
	Details(name string) (resolver.Result, string)
}

// Compile-time check to ensure the pipeline service satisfies the handler contract
var _ PrescriptionService = (*prescription.Service)(nil)

// HTTPHandlerImpl serves the prescription API.
type HTTPHandlerImpl struct {
	service       PrescriptionService
	store         interfaces.CatalogStore
	validator     interfaces.InputValidator
	healthChecker interfaces.HealthChecker
	maxAudioBytes int64
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(
	service PrescriptionService,
	store interfaces.CatalogStore,
	validator interfaces.InputValidator,
	healthChecker interfaces.HealthChecker,
	maxAudioBytes int64,
) *HTTPHandlerImpl {
	return &HTTPHandlerImpl{
		service:       service,
		store:         store,
		validator:     validator,
		healthChecker: healthChecker,
		maxAudioBytes: maxAudioBytes,
	}
}

type prescriptionRequest struct {
	Transcript string `json:"transcript"`
}

type batchRequest struct {
	Transcripts []string `json:"transcripts"`
}

type sendRequest struct {
	Transcript string `json:"transcript"`
	To         string `json:"to"`
}

// PrescriptionResponse is a record together with its formatted text.
type PrescriptionResponse struct {
	prescription.Record
	Formatted string `json:"formatted"`
}

func (h *HTTPHandlerImpl) respond(rec prescription.Record) PrescriptionResponse {
	return PrescriptionResponse{Record: rec, Formatted: h.service.Format(rec)}
}

// decodeBody reads the request body, checks it against schema and decodes
// it into v.
func decodeBody(r *http.Request, schema *validation.RequestSchema, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: body exceeds %d bytes", validation.ErrInvalidRequest, maxErr.Limit)
		}
		return fmt.Errorf("%w: %v", validation.ErrInvalidRequest, err)
	}
	if err := schema.Validate(body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", validation.ErrInvalidRequest, err)
	}
	return nil
}

// CreatePrescription handles POST /v1/prescriptions
func (h *HTTPHandlerImpl) CreatePrescription(w http.ResponseWriter, r *http.Request) {
	var req prescriptionRequest
	if err := decodeBody(r, validation.PrescriptionRequest, &req); err != nil {
		respondWithPipelineError(w, r, err, http.StatusBadRequest)
		return
	}
	if err := h.validator.ValidateTranscript(req.Transcript); err != nil {
		respondWithPipelineError(w, r, err, http.StatusBadRequest)
		return
	}

	rec := h.service.Process(req.Transcript)
	RespondWithJSON(w, http.StatusOK, h.respond(rec))
}

// CreatePrescriptionBatch handles POST /v1/prescriptions/batch
func (h *HTTPHandlerImpl) CreatePrescriptionBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeBody(r, validation.BatchRequest, &req); err != nil {
		respondWithPipelineError(w, r, err, http.StatusBadRequest)
		return
	}
	for i, t := range req.Transcripts {
		if err := h.validator.ValidateTranscript(t); err != nil {
			respondWithPipelineError(w, r, fmt.Errorf("transcripts[%d]: %w", i, err), http.StatusBadRequest)
			return
		}
	}

	records, err := h.service.ProcessBatch(r.Context(), req.Transcripts)
	if err != nil {
		respondWithPipelineError(w, r, err, http.StatusInternalServerError)
		return
	}

	results := make([]PrescriptionResponse, len(records))
	for i, rec := range records {
		results[i] = h.respond(rec)
	}
	RespondWithJSON(w, http.StatusOK, map[string]any{
		"count":         len(results),
		"prescriptions": results,
	})
}

// CreatePrescriptionFromAudio handles POST /v1/prescriptions/audio. The
// request body is the raw audio capture.
func (h *HTTPHandlerImpl) CreatePrescriptionFromAudio(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if h.maxAudioBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxAudioBytes)
	}
	audio, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			RespondWithError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Audio capture too large. Maximum allowed size is %d bytes", maxErr.Limit))
			return
		}
		RespondWithError(w, http.StatusBadRequest, "Could not read audio capture")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	rec, err := h.service.ProcessAudio(r.Context(), audio, contentType)
	if err != nil {
		respondWithPipelineError(w, r, err, http.StatusBadGateway)
		return
	}
	RespondWithJSON(w, http.StatusOK, h.respond(rec))
}

// RenderPrescription handles POST /v1/prescriptions/document
func (h *HTTPHandlerImpl) RenderPrescription(w http.ResponseWriter, r *http.Request) {
	var req prescriptionRequest
	if err := decodeBody(r, validation.PrescriptionRequest, &req); err != nil {
		respondWithPipelineError(w, r, err, http.StatusBadRequest)
		return
	}
	if err := h.validator.ValidateTranscript(req.Transcript); err != nil {
		respondWithPipelineError(w, r, err, http.StatusBadRequest)
		return
	}

	rec := h.service.Process(req.Transcript)
	doc, contentType, err := h.service.Render(rec)
	if err != nil {
		respondWithPipelineError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set(logging.PrescriptionIDHeader, rec.ID.String())
	RespondWithFile(w, contentType, "prescription-"+rec.ID.String()+".pdf", doc)
}

// SendPrescription handles POST /v1/prescriptions/send
func (h *HTTPHandlerImpl) SendPrescription(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeBody(r, validation.SendRequest, &req); err != nil {
		respondWithPipelineError(w, r, err, http.StatusBadRequest)
		return
	}
	if err := h.validator.ValidateTranscript(req.Transcript); err != nil {
		respondWithPipelineError(w, r, err, http.StatusBadRequest)
		return
	}
	to, err := h.validator.ValidatePhone(req.To)
	if err != nil {
		respondWithPipelineError(w, r, err, http.StatusBadRequest)
		return
	}

	rec := h.service.Process(req.Transcript)
	delivery, err := h.service.Deliver(r.Context(), rec, to)
	if err != nil {
		respondWithPipelineError(w, r, err, http.StatusBadGateway)
		return
	}

	RespondWithJSON(w, http.StatusOK, map[string]any{
		"prescription": h.respond(rec),
		"delivery":     delivery,
	})
}

// ResolveMedicine handles GET /v1/medicines/resolve?q=
func (h *HTTPHandlerImpl) ResolveMedicine(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		RespondWithError(w, http.StatusBadRequest, "Missing query parameter q")
		return
	}
	if err := h.validator.ValidateInput(query); err != nil {
		logging.Warn("Unusual user input", "q", query)
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	// An unresolved name is a valid answer, so this is always 200
	RespondWithJSON(w, http.StatusOK, map[string]any{
		"query":      query,
		"resolution": h.service.Resolve(query),
	})
}

// MedicineDetails handles GET /v1/medicines/{name}
func (h *HTTPHandlerImpl) MedicineDetails(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || name == "" {
		RespondWithError(w, http.StatusBadRequest, "Invalid medicine name")
		return
	}
	if err := h.validator.ValidateInput(name); err != nil {
		logging.Warn("Unusual user input", "name", name)
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, details := h.service.Details(name)
	if res.Status != resolver.Resolved {
		RespondWithError(w, http.StatusNotFound, details)
		return
	}

	RespondWithJSON(w, http.StatusOK, map[string]any{
		"query":      name,
		"resolution": res,
		"details":    details,
	})
}

// ExportCatalog handles GET /v1/medicines/export
func (h *HTTPHandlerImpl) ExportCatalog(w http.ResponseWriter, r *http.Request) {
	data, err := medicineparser.ExportXLSX(h.store.GetCatalog())
	if err != nil {
		logging.Error("Failed to export catalog", "error", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to export catalog")
		return
	}
	RespondWithFile(w, contentTypeXLSX, "medicines.xlsx", data)
}

// HealthCheck handles GET /health
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, data, httpStatus := h.healthChecker.HealthCheck()
	RespondWithJSON(w, httpStatus, map[string]any{
		"status": status,
		"data":   data,
	})
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/harithra-blueberry/aiprescription/catalog"
	"github.com/harithra-blueberry/aiprescription/data"
	"github.com/harithra-blueberry/aiprescription/dispatch"
	"github.com/harithra-blueberry/aiprescription/medicineparser"
	"github.com/harithra-blueberry/aiprescription/prescription"
	"github.com/harithra-blueberry/aiprescription/renderer"
	"github.com/harithra-blueberry/aiprescription/storage"
	"github.com/harithra-blueberry/aiprescription/transcriber"
	"github.com/harithra-blueberry/aiprescription/validation"
)

const scenario = "dolo six fifty 650 mg twice a day after food for 5 days in the morning"

type mockTranscriber struct {
	transcript string
	err        error
}

func (m *mockTranscriber) Transcribe(ctx context.Context, audio []byte, contentType string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.transcript, nil
}

type mockRenderer struct{}

func (mockRenderer) Render(text string) ([]byte, error) { return []byte("%PDF-" + text), nil }

func (mockRenderer) ContentType() string { return "application/pdf" }

type mockUploader struct{}

func (mockUploader) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	return "https://blob.example/" + name, nil
}

type mockDispatcher struct {
	err error
}

func (m mockDispatcher) SendMedia(ctx context.Context, to, body, mediaURL string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "SM123", nil
}

type mockHealthChecker struct {
	status string
	code   int
}

func (m mockHealthChecker) HealthCheck() (string, map[string]any, int) {
	return m.status, map[string]any{"medicines": 5}, m.code
}

func (m mockHealthChecker) CalculateNextUpdate() time.Time { return time.Time{} }

func newTestHandler(t *testing.T, opts prescription.Options, maxAudioBytes int64) *HTTPHandlerImpl {
	t.Helper()
	store := data.NewStore()
	store.UpdateCatalog(catalog.Default())
	service := prescription.NewService(store, opts)
	validator := validation.NewInputValidator(0)
	health := mockHealthChecker{status: "healthy", code: http.StatusOK}
	return NewHTTPHandler(service, store, validator, health, maxAudioBytes)
}

func newTestRouter(h *HTTPHandlerImpl) http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/prescriptions", h.CreatePrescription)
	r.Post("/v1/prescriptions/batch", h.CreatePrescriptionBatch)
	r.Post("/v1/prescriptions/audio", h.CreatePrescriptionFromAudio)
	r.Post("/v1/prescriptions/document", h.RenderPrescription)
	r.Post("/v1/prescriptions/send", h.SendPrescription)
	r.Get("/v1/medicines/resolve", h.ResolveMedicine)
	r.Get("/v1/medicines/export", h.ExportCatalog)
	r.Get("/v1/medicines/{name}", h.MedicineDetails)
	r.Get("/health", h.HealthCheck)
	return r
}

func doRequest(handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rr.Body.String(), err)
	}
	return body
}

func TestRespondWithJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondWithJSON(rr, http.StatusCreated, map[string]string{"message": "success"})

	if rr.Code != http.StatusCreated {
		t.Errorf("Expected status %d, got %d", http.StatusCreated, rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Expected JSON content type, got %s", got)
	}
	if rr.Header().Get("Last-Modified") == "" {
		t.Error("Expected Last-Modified header")
	}
	if got := rr.Body.String(); got != `{"message":"success"}` {
		t.Errorf("Expected body %s, got %s", `{"message":"success"}`, got)
	}
}

func TestRespondWithJSONMarshalFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondWithJSON(rr, http.StatusOK, map[string]any{"bad": make(chan int)})

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, rr.Code)
	}
}

func TestRespondWithError(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondWithError(rr, http.StatusNotFound, "Medicine not found")

	body := decodeJSON(t, rr)
	if body["error"] != "Not Found" {
		t.Errorf("Expected error Not Found, got %v", body["error"])
	}
	if body["message"] != "Medicine not found" {
		t.Errorf("Expected message, got %v", body["message"])
	}
	if body["code"] != float64(http.StatusNotFound) {
		t.Errorf("Expected code 404, got %v", body["code"])
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		fallback int
		expected int
	}{
		{"invalid input", fmt.Errorf("x: %w", validation.ErrInvalidInput), 500, http.StatusBadRequest},
		{"invalid request", validation.ErrInvalidRequest, 500, http.StatusBadRequest},
		{"batch too large", prescription.ErrBatchTooLarge, 500, http.StatusRequestEntityTooLarge},
		{"not configured", fmt.Errorf("document storage %w", prescription.ErrNotConfigured), 500, http.StatusServiceUnavailable},
		{"render failure", renderer.ErrRender, 502, http.StatusInternalServerError},
		{"unintelligible audio", fmt.Errorf("transcribe audio: %w", transcriber.ErrUnintelligible), 500, http.StatusUnprocessableEntity},
		{"transcription timeout", transcriber.ErrTimeout, 500, http.StatusGatewayTimeout},
		{"invalid storage key", storage.ErrInvalidKey, 500, http.StatusBadRequest},
		{"message rejected", fmt.Errorf("send: %w", dispatch.ErrRejected), 500, http.StatusUnprocessableEntity},
		{"deadline", context.DeadlineExceeded, 500, http.StatusGatewayTimeout},
		{"cancelled", fmt.Errorf("batch interrupted: %w", context.Canceled), 500, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusBadGateway, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorStatus(tt.err, tt.fallback); got != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestCreatePrescription(t *testing.T) {
	router := newTestRouter(newTestHandler(t, prescription.Options{}, 0))

	rr := doRequest(router, http.MethodPost, "/v1/prescriptions", `{"transcript":"`+scenario+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}

	body := decodeJSON(t, rr)
	if body["id"] == "" || body["id"] == nil {
		t.Error("Expected a record ID")
	}
	if body["sourceTranscript"] != scenario {
		t.Errorf("Expected source transcript, got %v", body["sourceTranscript"])
	}

	medicine, ok := body["medicine"].(map[string]any)
	if !ok {
		t.Fatalf("Expected medicine object, got %v", body["medicine"])
	}
	if medicine["status"] != "resolved" || medicine["name"] != "dolo 650" {
		t.Errorf("Expected resolved dolo 650, got %v", medicine)
	}

	fields, ok := body["fields"].(map[string]any)
	if !ok {
		t.Fatalf("Expected fields object, got %v", body["fields"])
	}
	if fields["dosage"] != "650 mg" {
		t.Errorf("Expected dosage 650 mg, got %v", fields["dosage"])
	}

	formatted, _ := body["formatted"].(string)
	if !strings.Contains(formatted, "Medicine: dolo 650\n") {
		t.Errorf("Expected formatted prescription, got %q", formatted)
	}
}

func TestCreatePrescriptionUnknownMedicine(t *testing.T) {
	router := newTestRouter(newTestHandler(t, prescription.Options{}, 0))

	rr := doRequest(router, http.MethodPost, "/v1/prescriptions", `{"transcript":"take something for 3 days"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}

	body := decodeJSON(t, rr)
	medicine := body["medicine"].(map[string]any)
	if medicine["status"] != "unresolved" || medicine["name"] != "Unknown Medicine" {
		t.Errorf("Expected unresolved medicine, got %v", medicine)
	}
	fields := body["fields"].(map[string]any)
	if fields["dosage"] != nil {
		t.Errorf("Expected absent dosage as null, got %v", fields["dosage"])
	}
}

func TestCreatePrescriptionRejectsBadRequests(t *testing.T) {
	router := newTestRouter(newTestHandler(t, prescription.Options{}, 0))

	tests := []struct {
		name string
		body string
	}{
		{"malformed JSON", `{"transcript":`},
		{"missing transcript", `{}`},
		{"wrong type", `{"transcript":42}`},
		{"unknown field", `{"transcript":"dolo","extra":true}`},
		{"control characters", `{"transcript":"dolo\u0000650"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(router, http.MethodPost, "/v1/prescriptions", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected status %d, got %d: %s", http.StatusBadRequest, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestCreatePrescriptionBatch(t *testing.T) {
	router := newTestRouter(newTestHandler(t, prescription.Options{MaxBatch: 2}, 0))

	rr := doRequest(router, http.MethodPost, "/v1/prescriptions/batch",
		`{"transcripts":["`+scenario+`","ibuprofen once a day"]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}

	body := decodeJSON(t, rr)
	if body["count"] != float64(2) {
		t.Errorf("Expected count 2, got %v", body["count"])
	}
	results := body["prescriptions"].([]any)
	first := results[0].(map[string]any)["medicine"].(map[string]any)
	second := results[1].(map[string]any)["medicine"].(map[string]any)
	if first["name"] != "dolo 650" || second["name"] != "ibuprofen" {
		t.Errorf("Expected input order dolo 650, ibuprofen; got %v, %v", first["name"], second["name"])
	}
}

func TestCreatePrescriptionBatchErrors(t *testing.T) {
	router := newTestRouter(newTestHandler(t, prescription.Options{MaxBatch: 2}, 0))

	tests := []struct {
		name     string
		body     string
		expected int
	}{
		{"empty batch", `{"transcripts":[]}`, http.StatusBadRequest},
		{"not strings", `{"transcripts":[1,2]}`, http.StatusBadRequest},
		{"too large", `{"transcripts":["a","b","c"]}`, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(router, http.MethodPost, "/v1/prescriptions/batch", tt.body)
			if rr.Code != tt.expected {
				t.Errorf("Expected status %d, got %d: %s", tt.expected, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestCreatePrescriptionFromAudio(t *testing.T) {
	tests := []struct {
		name        string
		transcriber *mockTranscriber
		audio       string
		expected    int
	}{
		{"transcribed", &mockTranscriber{transcript: scenario}, "RIFFdata", http.StatusOK},
		{"too large", &mockTranscriber{transcript: scenario}, strings.Repeat("a", 64), http.StatusRequestEntityTooLarge},
		{"unintelligible", &mockTranscriber{err: transcriber.ErrUnintelligible}, "RIFFdata", http.StatusUnprocessableEntity},
		{"service down", &mockTranscriber{err: transcriber.ErrUnavailable}, "RIFFdata", http.StatusBadGateway},
		{"not configured", nil, "RIFFdata", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := prescription.Options{}
			if tt.transcriber != nil {
				opts.Transcriber = tt.transcriber
			}
			router := newTestRouter(newTestHandler(t, opts, 32))

			req := httptest.NewRequest(http.MethodPost, "/v1/prescriptions/audio", strings.NewReader(tt.audio))
			req.Header.Set("Content-Type", "audio/wav")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tt.expected {
				t.Fatalf("Expected status %d, got %d: %s", tt.expected, rr.Code, rr.Body.String())
			}
			if tt.expected == http.StatusOK {
				body := decodeJSON(t, rr)
				if body["sourceTranscript"] != scenario {
					t.Errorf("Expected transcribed text, got %v", body["sourceTranscript"])
				}
			}
		})
	}
}

func TestRenderPrescription(t *testing.T) {
	router := newTestRouter(newTestHandler(t, prescription.Options{Renderer: mockRenderer{}}, 0))

	rr := doRequest(router, http.MethodPost, "/v1/prescriptions/document", `{"transcript":"`+scenario+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Content-Type"); got != "application/pdf" {
		t.Errorf("Expected application/pdf, got %s", got)
	}
	id := rr.Header().Get("X-Prescription-ID")
	if id == "" {
		t.Error("Expected X-Prescription-ID header")
	}
	if got := rr.Header().Get("Content-Disposition"); !strings.Contains(got, "prescription-"+id+".pdf") {
		t.Errorf("Expected attachment named after the record, got %s", got)
	}
	if !strings.HasPrefix(rr.Body.String(), "%PDF-") || !strings.Contains(rr.Body.String(), "Medicine: dolo 650") {
		t.Errorf("Expected rendered prescription, got %q", rr.Body.String())
	}
}

func TestRenderPrescriptionNotConfigured(t *testing.T) {
	router := newTestRouter(newTestHandler(t, prescription.Options{}, 0))

	rr := doRequest(router, http.MethodPost, "/v1/prescriptions/document", `{"transcript":"dolo"}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}
}

func TestSendPrescription(t *testing.T) {
	opts := prescription.Options{
		Renderer:   mockRenderer{},
		Uploader:   mockUploader{},
		Dispatcher: mockDispatcher{},
	}
	router := newTestRouter(newTestHandler(t, opts, 0))

	rr := doRequest(router, http.MethodPost, "/v1/prescriptions/send",
		`{"transcript":"`+scenario+`","to":"+1 (415) 555-0123"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}

	body := decodeJSON(t, rr)
	delivery := body["delivery"].(map[string]any)
	if delivery["to"] != "+14155550123" {
		t.Errorf("Expected normalized recipient, got %v", delivery["to"])
	}
	if delivery["messageSid"] != "SM123" {
		t.Errorf("Expected message SID SM123, got %v", delivery["messageSid"])
	}
	if url, _ := delivery["documentUrl"].(string); !strings.HasPrefix(url, "https://blob.example/prescriptions/") {
		t.Errorf("Expected uploaded document URL, got %v", delivery["documentUrl"])
	}

	record := body["prescription"].(map[string]any)
	if record["id"] != delivery["recordId"] {
		t.Errorf("Expected delivery for record %v, got %v", record["id"], delivery["recordId"])
	}
}

func TestSendPrescriptionErrors(t *testing.T) {
	full := prescription.Options{Renderer: mockRenderer{}, Uploader: mockUploader{}, Dispatcher: mockDispatcher{}}
	rejected := prescription.Options{Renderer: mockRenderer{}, Uploader: mockUploader{}, Dispatcher: mockDispatcher{err: dispatch.ErrRejected}}
	down := prescription.Options{Renderer: mockRenderer{}, Uploader: mockUploader{}, Dispatcher: mockDispatcher{err: errors.New("connection reset")}}

	tests := []struct {
		name     string
		opts     prescription.Options
		body     string
		expected int
	}{
		{"invalid phone", full, `{"transcript":"dolo","to":"12345"}`, http.StatusBadRequest},
		{"missing recipient", full, `{"transcript":"dolo"}`, http.StatusBadRequest},
		{"storage not configured", prescription.Options{Renderer: mockRenderer{}}, `{"transcript":"dolo","to":"+14155550123"}`, http.StatusServiceUnavailable},
		{"rejected by provider", rejected, `{"transcript":"dolo","to":"+14155550123"}`, http.StatusUnprocessableEntity},
		{"provider failure", down, `{"transcript":"dolo","to":"+14155550123"}`, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(newTestHandler(t, tt.opts, 0))
			rr := doRequest(router, http.MethodPost, "/v1/prescriptions/send", tt.body)
			if rr.Code != tt.expected {
				t.Errorf("Expected status %d, got %d: %s", tt.expected, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestSendPrescriptionHidesUpstreamDetail(t *testing.T) {
	opts := prescription.Options{Renderer: mockRenderer{}, Uploader: mockUploader{}, Dispatcher: mockDispatcher{err: errors.New("secret upstream detail")}}
	router := newTestRouter(newTestHandler(t, opts, 0))

	rr := doRequest(router, http.MethodPost, "/v1/prescriptions/send", `{"transcript":"dolo","to":"+14155550123"}`)
	if strings.Contains(rr.Body.String(), "secret") {
		t.Errorf("Expected upstream error detail to be hidden, got %s", rr.Body.String())
	}
}

func TestResolveMedicine(t *testing.T) {
	router := newTestRouter(newTestHandler(t, prescription.Options{}, 0))

	tests := []struct {
		name           string
		target         string
		expectedStatus int
		expectedResult string
	}{
		{"resolved", "/v1/medicines/resolve?q=ibuprofen", http.StatusOK, "resolved"},
		{"fuzzy", "/v1/medicines/resolve?q=paracetmol", http.StatusOK, "resolved"},
		{"unresolved", "/v1/medicines/resolve?q=zzzzqqq", http.StatusOK, "unresolved"},
		{"missing query", "/v1/medicines/resolve", http.StatusBadRequest, ""},
		{"dangerous input", "/v1/medicines/resolve?q=%3Cscript%3E", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(router, http.MethodGet, tt.target, "")
			if rr.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
			if tt.expectedResult == "" {
				return
			}
			body := decodeJSON(t, rr)
			resolution := body["resolution"].(map[string]any)
			if resolution["status"] != tt.expectedResult {
				t.Errorf("Expected %s, got %v", tt.expectedResult, resolution["status"])
			}
		})
	}
}

func TestMedicineDetails(t *testing.T) {
	router := newTestRouter(newTestHandler(t, prescription.Options{}, 0))

	rr := doRequest(router, http.MethodGet, "/v1/medicines/dolo%20650", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	body := decodeJSON(t, rr)
	details, _ := body["details"].(string)
	if !strings.HasPrefix(details, "Medicine Name: dolo 650\n") {
		t.Errorf("Expected details block, got %q", details)
	}
	resolution := body["resolution"].(map[string]any)
	if resolution["confidence"] != float64(100) {
		t.Errorf("Expected exact match confidence 100, got %v", resolution["confidence"])
	}
}

func TestMedicineDetailsNotFound(t *testing.T) {
	router := newTestRouter(newTestHandler(t, prescription.Options{}, 0))

	rr := doRequest(router, http.MethodGet, "/v1/medicines/zzzzqqq", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
	body := decodeJSON(t, rr)
	if body["message"] != "Medicine 'zzzzqqq' not found in the dataset.\n" {
		t.Errorf("Expected not-found message, got %q", body["message"])
	}
}

func TestExportCatalog(t *testing.T) {
	router := newTestRouter(newTestHandler(t, prescription.Options{}, 0))

	rr := doRequest(router, http.MethodGet, "/v1/medicines/export", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Content-Type"); got != contentTypeXLSX {
		t.Errorf("Expected XLSX content type, got %s", got)
	}

	cat, _, err := medicineparser.LoadXLSX(bytes.NewReader(rr.Body.Bytes()), "export")
	if err != nil {
		t.Fatalf("Exported workbook does not load: %v", err)
	}
	if cat.Len() != catalog.Default().Len() {
		t.Errorf("Expected %d medicines, got %d", catalog.Default().Len(), cat.Len())
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		health mockHealthChecker
	}{
		{"healthy", mockHealthChecker{status: "healthy", code: http.StatusOK}},
		{"unhealthy", mockHealthChecker{status: "unhealthy", code: http.StatusServiceUnavailable}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, prescription.Options{}, 0)
			h.healthChecker = tt.health

			rr := doRequest(newTestRouter(h), http.MethodGet, "/health", "")
			if rr.Code != tt.health.code {
				t.Errorf("Expected status %d, got %d", tt.health.code, rr.Code)
			}
			body := decodeJSON(t, rr)
			if body["status"] != tt.health.status {
				t.Errorf("Expected status %s, got %v", tt.health.status, body["status"])
			}
			if _, ok := body["data"].(map[string]any); !ok {
				t.Errorf("Expected data object, got %v", body["data"])
			}
		})
	}
}

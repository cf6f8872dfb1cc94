// Package transcriber sends audio captures to a speech-to-text service and
// returns the best-effort transcript.
package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/harithra-blueberry/aiprescription/interfaces"
	"github.com/harithra-blueberry/aiprescription/logging"
)

// DefaultMaxCaptureBytes bounds one capture, roughly ten seconds of
// 16-bit 48kHz stereo PCM.
const DefaultMaxCaptureBytes = 2 << 20

var (
	ErrNotConfigured   = errors.New("speech transcription is not configured")
	ErrEmptyCapture    = errors.New("audio capture is empty")
	ErrCaptureTooLarge = errors.New("audio capture exceeds the maximum size")
	ErrTimeout         = errors.New("transcription timed out")
	ErrUnintelligible  = errors.New("could not understand audio")
	ErrUnavailable     = errors.New("transcription service unavailable")
)

// MapHTTPStatus maps transcription errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrEmptyCapture):
		return http.StatusBadRequest
	case errors.Is(err, ErrCaptureTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUnintelligible):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// Compile-time check to ensure Client implements Transcriber
var _ interfaces.Transcriber = (*Client)(nil)

// Config holds the speech service endpoint.
type Config struct {
	URL             string
	Timeout         time.Duration
	MaxCaptureBytes int
}

// Client posts raw audio to the service. The service answers 200 with
// {"transcript": "..."} or 422 when no speech was recognized.
type Client struct {
	url        string
	maxCapture int
	client     *http.Client
}

// New creates a transcription client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, ErrNotConfigured
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxCapture := cfg.MaxCaptureBytes
	if maxCapture <= 0 {
		maxCapture = DefaultMaxCaptureBytes
	}

	return &Client{
		url:        cfg.URL,
		maxCapture: maxCapture,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

// MaxCaptureBytes returns the largest accepted capture.
func (c *Client) MaxCaptureBytes() int {
	return c.maxCapture
}

type transcriptResponse struct {
	Transcript string `json:"transcript"`
}

// Transcribe implements the Transcriber interface
func (c *Client) Transcribe(ctx context.Context, audio []byte, contentType string) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyCapture
	}
	if len(audio) > c.maxCapture {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrCaptureTooLarge, len(audio), c.maxCapture)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, time.Since(start).Round(time.Millisecond))
		}
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return "", ErrUnintelligible
	case resp.StatusCode == http.StatusGatewayTimeout || resp.StatusCode == http.StatusRequestTimeout:
		return "", ErrTimeout
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var body transcriptResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}

	transcript := strings.TrimSpace(body.Transcript)
	if transcript == "" {
		return "", ErrUnintelligible
	}

	logging.Debug("Audio transcribed",
		"bytes", len(audio),
		"chars", len(transcript),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return transcript, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

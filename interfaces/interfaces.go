// Package interfaces defines the contracts between the prescription service
// components so that the catalog store, loaders and outbound collaborators
// can be swapped out in tests.
package interfaces

import (
	"context"
	"time"

	"github.com/harithra-blueberry/aiprescription/catalog"
)

// CatalogStore holds the current catalog snapshot.
// Readers get an immutable snapshot; reloads swap in a new one atomically.
type CatalogStore interface {
	GetCatalog() *catalog.Catalog
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time

	UpdateCatalog(c *catalog.Catalog)
	BeginUpdate() bool
	EndUpdate()
}

// CatalogLoader reads the medicine dataset from its configured source.
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) (*catalog.Catalog, error)
}

// Scheduler manages the periodic catalog reload.
type Scheduler interface {
	Start() error
	Stop()
}

// HealthChecker reports service health for the /health endpoint.
type HealthChecker interface {
	// HealthCheck returns the status label, response details and HTTP status code.
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextUpdate returns the next scheduled catalog reload.
	CalculateNextUpdate() time.Time
}

// Transcriber turns an audio capture into a plain-text transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, contentType string) (string, error)
}

// Renderer turns a flat text block into a paginated document.
type Renderer interface {
	Render(text string) ([]byte, error)
	ContentType() string
}

// Uploader stores a document and returns a publicly reachable URL for it.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// Dispatcher delivers a media URL to a messaging endpoint and returns the
// provider's message identifier.
type Dispatcher interface {
	SendMedia(ctx context.Context, to, body, mediaURL string) (string, error)
}

// InputValidator checks user input at the HTTP boundary.
type InputValidator interface {
	// ValidateTranscript checks a transcript's length and content.
	ValidateTranscript(transcript string) error

	// ValidateInput checks a short query string such as a medicine name.
	ValidateInput(input string) error

	// ValidatePhone normalizes a recipient number to E.164.
	ValidatePhone(phone string) (string, error)
}

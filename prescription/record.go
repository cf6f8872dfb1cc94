// Package prescription runs the transcript pipeline: resolve the medicine
// named in a transcript, extract its dosing fields and hand the result to
// the formatter, renderer and dispatcher.
package prescription

import (
	"time"

	"github.com/google/uuid"
	"github.com/harithra-blueberry/aiprescription/extractor"
	"github.com/harithra-blueberry/aiprescription/resolver"
)

// Record is one structured prescription, built fresh per request.
type Record struct {
	ID               uuid.UUID        `json:"id"`
	Identity         resolver.Result  `json:"medicine"`
	Fields           extractor.Fields `json:"fields"`
	SourceTranscript string           `json:"sourceTranscript"`
	CreatedAt        time.Time        `json:"createdAt"`
}

// Resolved reports whether the medicine was matched in the catalog.
func (r Record) Resolved() bool {
	return r.Identity.Status == resolver.Resolved
}

// DocumentKey is the storage key of the record's rendered document.
func (r Record) DocumentKey() string {
	return "prescriptions/" + r.CreatedAt.UTC().Format("2006/01/02") + "/" + r.ID.String() + ".pdf"
}

// Delivery describes a prescription sent to a patient.
type Delivery struct {
	RecordID    uuid.UUID `json:"recordId"`
	DocumentURL string    `json:"documentUrl"`
	MessageSID  string    `json:"messageSid"`
	To          string    `json:"to"`
}

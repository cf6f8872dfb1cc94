// Package formatter renders a resolved medicine and its extracted dosing
// fields as the plain-text prescription block handed to the document
// renderer and the console.
package formatter

import (
	"fmt"
	"strings"

	"github.com/harithra-blueberry/aiprescription/extractor"
	"github.com/harithra-blueberry/aiprescription/resolver"
)

const (
	// DefaultTimingDelimiter joins several timing words on one line.
	DefaultTimingDelimiter = ", "

	rule        = "======================="
	title       = "DOCTOR'S PRESCRIPTION"
	notes       = "Notes: Please take the medicine as prescribed."
	detailsRule = "----------------------------------------"
)

// Formatter renders prescription records. The zero value uses
// DefaultTimingDelimiter.
type Formatter struct {
	TimingDelimiter string
}

// New returns a formatter joining timing values with delim.
func New(delim string) Formatter {
	return Formatter{TimingDelimiter: delim}
}

func (f Formatter) delimiter() string {
	if f.TimingDelimiter == "" {
		return DefaultTimingDelimiter
	}
	return f.TimingDelimiter
}

// Format renders the prescription block. Absent fields print as
// extractor.AbsentMarker and an unresolved identity prints as
// resolver.UnknownMedicine.
func (f Formatter) Format(identity resolver.Result, fields extractor.Fields) string {
	var b strings.Builder

	b.WriteString(rule + "\n")
	b.WriteString(title + "\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Medicine: %s\n", identity.Name())
	fmt.Fprintf(&b, "Dosage: %s\n", fields.Dosage)
	fmt.Fprintf(&b, "Frequency: %s\n", fields.Frequency)
	fmt.Fprintf(&b, "Duration: %s\n", fields.Duration)
	fmt.Fprintf(&b, "Timing: %s\n", fields.TimingText(f.delimiter()))
	fmt.Fprintf(&b, "Food Instruction: %s\n", fields.FoodInstruction)
	b.WriteString("\n")
	b.WriteString(notes + "\n")
	b.WriteString(rule + "\n")

	return b.String()
}

// FormatDetails renders the catalog record behind a resolution, or a
// not-found line naming the query.
func (f Formatter) FormatDetails(query string, result resolver.Result) string {
	if result.Status != resolver.Resolved || result.Entry == nil {
		return fmt.Sprintf("Medicine '%s' not found in the dataset.\n", query)
	}

	e := result.Entry
	var b strings.Builder
	fmt.Fprintf(&b, "Medicine Name: %s\n", e.Name)
	fmt.Fprintf(&b, "Category: %s\n", e.Category)
	fmt.Fprintf(&b, "Dosage Form: %s\n", e.DosageForm)
	fmt.Fprintf(&b, "Strength: %s\n", e.Strength)
	fmt.Fprintf(&b, "Manufacturer: %s\n", e.Manufacturer)
	fmt.Fprintf(&b, "Indication: %s\n", e.Indication)
	fmt.Fprintf(&b, "Classification: %s\n", e.Classification)
	b.WriteString(detailsRule + "\n")

	return b.String()
}

var defaultFormatter Formatter

// Format renders with the default timing delimiter.
func Format(identity resolver.Result, fields extractor.Fields) string {
	return defaultFormatter.Format(identity, fields)
}

// FormatDetails renders catalog details with the default formatter.
func FormatDetails(query string, result resolver.Result) string {
	return defaultFormatter.FormatDetails(query, result)
}

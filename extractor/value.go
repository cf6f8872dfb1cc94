package extractor

import (
	"encoding/json"
	"strings"
)

// AbsentMarker is how a field without a match is displayed.
const AbsentMarker = "Not mentioned"

// Value is an extracted field: either present with the text that matched,
// or absent. The zero Value is absent.
type Value struct {
	text    string
	present bool
}

// Present wraps matched text.
func Present(text string) Value {
	return Value{text: text, present: true}
}

// Absent returns the value of a field that was not found.
func Absent() Value {
	return Value{}
}

// Get returns the matched text and whether the field is present.
func (v Value) Get() (string, bool) {
	return v.text, v.present
}

// IsPresent reports whether the field was found.
func (v Value) IsPresent() bool {
	return v.present
}

// String returns the matched text, or AbsentMarker.
func (v Value) String() string {
	if !v.present {
		return AbsentMarker
	}
	return v.text
}

// MarshalJSON encodes a present value as its text and an absent one as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.present {
		return []byte("null"), nil
	}
	return json.Marshal(v.text)
}

// Fields is the structured dosing information extracted from a transcript.
type Fields struct {
	Dosage          Value    `json:"dosage"`
	Frequency       Value    `json:"frequency"`
	Duration        Value    `json:"duration"`
	Timing          []string `json:"timing"`
	FoodInstruction Value    `json:"foodInstruction"`
}

// TimingText joins the timing words with delim, or returns AbsentMarker
// when none were found.
func (f Fields) TimingText(delim string) string {
	if len(f.Timing) == 0 {
		return AbsentMarker
	}
	return strings.Join(f.Timing, delim)
}

// Found counts the fields that were extracted, timing included.
func (f Fields) Found() int {
	n := 0
	for _, v := range []Value{f.Dosage, f.Frequency, f.Duration, f.FoodInstruction} {
		if v.present {
			n++
		}
	}
	if len(f.Timing) > 0 {
		n++
	}
	return n
}

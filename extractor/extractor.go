// Package extractor pulls structured dosing fields out of a free-form
// prescription transcript using declarative, per-field grammars.
package extractor

import (
	"errors"
	"fmt"
)

// Field names one structured prescription field.
type Field string

const (
	FieldDosage          Field = "dosage"
	FieldFrequency       Field = "frequency"
	FieldDuration        Field = "duration"
	FieldTiming          Field = "timing"
	FieldFoodInstruction Field = "foodInstruction"
)

var (
	ErrUnknownField   = errors.New("unknown field")
	ErrDuplicateField = errors.New("field declared more than once")
	ErrInvalidSpec    = errors.New("invalid pattern spec")
)

// PatternSpec declares how one field is recognized. When All is set every
// non-overlapping occurrence is collected in transcript order; otherwise
// only the first one is kept. Only the timing field may collect all.
type PatternSpec struct {
	Field   Field
	Grammar Term
	All     bool
}

// DefaultSpecs returns the recognition rules for every prescription field.
func DefaultSpecs() []PatternSpec {
	return []PatternSpec{
		{
			Field: FieldDosage,
			Grammar: Seq(
				Integer(), OptSpace(),
				OneOf("mg", "milligrams", "ml", "tablets", "pills", "units"),
			),
		},
		{
			Field: FieldFrequency,
			Grammar: Seq(
				Either(
					OneOf("once", "twice", "thrice", "one", "two", "three"),
					Seq(Word("every"), OptSpace(), Integer(), OptSpace(), Plural("hour")),
				),
				Opt(Seq(Space(), OneOf("a", "per"))),
				Opt(Seq(Space(), Either(OneOf("day", "week"), Plural("hour")))),
			),
		},
		{
			Field: FieldDuration,
			Grammar: Seq(
				Integer(), OptSpace(),
				Either(Plural("day"), Plural("week"), Plural("month")),
			),
		},
		{
			Field:   FieldTiming,
			Grammar: OneOf("morning", "afternoon", "evening", "night"),
			All:     true,
		},
		{
			Field: FieldFoodInstruction,
			Grammar: Seq(
				OneOf("before", "after", "with"),
				Opt(Seq(Space(), OneOf("food", "meals", "meal"))),
			),
		},
	}
}

type rule struct {
	field Field
	re    *Pattern
	all   bool
}

// Extractor applies a fixed set of compiled field rules. It is immutable and
// safe for concurrent use.
type Extractor struct {
	rules []rule
}

// New compiles the given specs. Fields without a spec are always absent.
func New(specs ...PatternSpec) (*Extractor, error) {
	seen := make(map[Field]bool, len(specs))
	rules := make([]rule, 0, len(specs))

	for _, spec := range specs {
		switch spec.Field {
		case FieldDosage, FieldFrequency, FieldDuration, FieldFoodInstruction:
			if spec.All {
				return nil, fmt.Errorf("%w: %s holds a single value", ErrInvalidSpec, spec.Field)
			}
		case FieldTiming:
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, spec.Field)
		}

		if seen[spec.Field] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateField, spec.Field)
		}
		seen[spec.Field] = true

		if spec.Grammar == nil {
			return nil, fmt.Errorf("%w: %s has no grammar", ErrInvalidSpec, spec.Field)
		}

		re, err := Compile(spec.Grammar)
		if err != nil {
			return nil, fmt.Errorf("compile %s pattern: %w", spec.Field, err)
		}

		rules = append(rules, rule{field: spec.Field, re: re, all: spec.All})
	}

	return &Extractor{rules: rules}, nil
}

// MustNew is New for specs known to be valid at init time.
func MustNew(specs ...PatternSpec) *Extractor {
	e, err := New(specs...)
	if err != nil {
		panic(err)
	}
	return e
}

var defaultExtractor = MustNew(DefaultSpecs()...)

// Default returns the extractor built from DefaultSpecs.
func Default() *Extractor {
	return defaultExtractor
}

// Extract runs the default extractor over transcript.
func Extract(transcript string) Fields {
	return defaultExtractor.Extract(transcript)
}

// Extract returns every field found in transcript. Matched text is kept
// verbatim; anything not found is Absent and Timing is left empty.
func (e *Extractor) Extract(transcript string) Fields {
	fields := Fields{Timing: []string{}}

	for _, r := range e.rules {
		if r.field == FieldTiming {
			if r.all {
				fields.Timing = append(fields.Timing, r.re.FindAllString(transcript, -1)...)
			} else if m := r.re.FindString(transcript); m != "" {
				fields.Timing = append(fields.Timing, m)
			}
			continue
		}

		m := r.re.FindString(transcript)
		if m == "" {
			continue
		}

		switch r.field {
		case FieldDosage:
			fields.Dosage = Present(m)
		case FieldFrequency:
			fields.Frequency = Present(m)
		case FieldDuration:
			fields.Duration = Present(m)
		case FieldFoodInstruction:
			fields.FoodInstruction = Present(m)
		}
	}

	return fields
}

// Package validation checks user input before it reaches the prescription pipeline.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/harithra-blueberry/aiprescription/interfaces"
)

// DefaultMaxTranscriptLength bounds transcripts accepted over HTTP, in bytes.
const DefaultMaxTranscriptLength = 10000

var (
	// ErrInvalidInput is wrapped by every rejection from InputValidatorImpl.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidRequest is wrapped by request bodies that fail their schema.
	ErrInvalidRequest = errors.New("invalid request body")
)

// Pre-compiled patterns, reused for all validations
var (
	// Medicine names: letters in any script, digits, and safe punctuation
	inputRegex = regexp.MustCompile(`^[\p{L}\p{M}0-9\s\-\.\+'/(),%]+$`)

	// E.164: a plus sign, a non-zero country code digit, 8 to 15 digits total
	phoneRegex = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

	// Substring checks are cheaper than regex for these
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"eval(", "expression(", "@import",
		// SQL injection patterns
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"--", "/*", "*/", "exec(", "execute(",
		// Command injection patterns
		"; ", "| ", "`", "$(", "${",
		// Path traversal patterns
		"../", "..\\", "%2e%2e", "file://",
		// NoSQL injection patterns
		"{$ne:", "{$gt:", "{$where:", "{$or:", "{$regex:",
	}

	phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
)

// Compile-time check to ensure InputValidatorImpl implements the interface
var _ interfaces.InputValidator = (*InputValidatorImpl)(nil)

// InputValidatorImpl implements interfaces.InputValidator
type InputValidatorImpl struct {
	maxTranscriptLength int
}

// NewInputValidator creates a validator. A non-positive maxTranscriptLength
// uses DefaultMaxTranscriptLength.
func NewInputValidator(maxTranscriptLength int) interfaces.InputValidator {
	if maxTranscriptLength <= 0 {
		maxTranscriptLength = DefaultMaxTranscriptLength
	}
	return &InputValidatorImpl{maxTranscriptLength: maxTranscriptLength}
}

// ValidateTranscript accepts any speech text, including an empty one, as
// long as it is valid UTF-8 without control characters and within the
// length limit. Punctuation is not restricted since transcripts are never
// interpreted.
func (v *InputValidatorImpl) ValidateTranscript(transcript string) error {
	if len(transcript) > v.maxTranscriptLength {
		return fmt.Errorf("%w: transcript too long: maximum %d bytes", ErrInvalidInput, v.maxTranscriptLength)
	}

	if !utf8.ValidString(transcript) {
		return fmt.Errorf("%w: transcript is not valid UTF-8", ErrInvalidInput)
	}

	for _, r := range transcript {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return fmt.Errorf("%w: transcript contains control characters", ErrInvalidInput)
		}
	}

	return nil
}

// ValidateInput validates medicine name queries
func (v *InputValidatorImpl) ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("%w: input cannot be empty", ErrInvalidInput)
	}

	if len(input) < 2 {
		return fmt.Errorf("%w: input too short: minimum 2 characters", ErrInvalidInput)
	}

	if len(input) > 100 {
		return fmt.Errorf("%w: input too long: maximum 100 characters", ErrInvalidInput)
	}

	// Many short words make fuzzy scoring expensive
	if words := strings.Fields(input); len(words) > 8 {
		return fmt.Errorf("%w: query too complex: maximum 8 words allowed", ErrInvalidInput)
	}

	lowerInput := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return fmt.Errorf("%w: input contains potentially dangerous content", ErrInvalidInput)
		}
	}

	if !inputRegex.MatchString(input) {
		return fmt.Errorf("%w: input contains invalid characters. Only letters, numbers, spaces and - . + ' / ( ) , %% are allowed", ErrInvalidInput)
	}

	if hasExcessiveRepetition(input) {
		return fmt.Errorf("%w: input contains excessive character repetition", ErrInvalidInput)
	}

	return nil
}

// ValidatePhone normalizes a recipient number to E.164. Common separators
// and a "whatsapp:" prefix are accepted and removed.
func (v *InputValidatorImpl) ValidatePhone(input string) (string, error) {
	number := strings.TrimSpace(input)
	number = strings.TrimPrefix(number, "whatsapp:")
	number = phoneSeparators.Replace(number)

	if number == "" {
		return "", fmt.Errorf("%w: phone number cannot be empty", ErrInvalidInput)
	}

	if !phoneRegex.MatchString(number) {
		return "", fmt.Errorf("%w: phone number must be in E.164 format, e.g. +14155550123", ErrInvalidInput)
	}

	return number, nil
}

// hasExcessiveRepetition reports the same byte repeated more than 10 times in a row
func hasExcessiveRepetition(input string) bool {
	run := 1
	for i := 1; i < len(input); i++ {
		if input[i] == input[i-1] {
			run++
			if run > 10 {
				return true
			}
			continue
		}
		run = 1
	}
	return false
}

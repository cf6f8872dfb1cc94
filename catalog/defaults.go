package catalog

// DefaultSource names the built-in catalog in logs and health output.
const DefaultSource = "builtin"

// knownMedicines is used when no catalog file is configured.
var knownMedicines = []string{
	"dolo 650",
	"paracetamol",
	"ibuprofen",
	"aspirin",
	"acetaminophen",
}

// Default returns the built-in catalog of commonly prescribed medicines.
func Default() *Catalog {
	entries := make([]Entry, 0, len(knownMedicines))
	for _, name := range knownMedicines {
		entries = append(entries, Entry{Name: name})
	}
	return NewFromSource(entries, DefaultSource)
}

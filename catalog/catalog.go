// Package catalog holds the medicine catalog entities and the immutable,
// name-indexed snapshot the resolver matches against.
package catalog

import (
	"strings"
	"time"
)

// Entry is one medicine record of the catalog dataset.
type Entry struct {
	Name           string `json:"name"`
	Category       string `json:"category"`
	DosageForm     string `json:"dosageForm"`
	Strength       string `json:"strength"`
	Manufacturer   string `json:"manufacturer"`
	Indication     string `json:"indication"`
	Classification string `json:"classification"`
}

// Catalog is a read-only snapshot of medicine entries, indexed by
// lowercase name. It is never mutated after New returns, so a *Catalog can
// be shared between goroutines without locking.
type Catalog struct {
	entries    []Entry
	byKey      map[string]int
	duplicates []string
	source     string
	loadedAt   time.Time
}

// Key returns the case-insensitive identity of a medicine name.
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// New builds a catalog snapshot from entries in their given order.
// Entries with a blank name are dropped; for names that collide
// case-insensitively the first entry wins and the later ones are recorded
// in Duplicates.
func New(entries []Entry) *Catalog {
	return NewFromSource(entries, "")
}

// NewFromSource is New with the origin of the data recorded for reporting.
func NewFromSource(entries []Entry, source string) *Catalog {
	c := &Catalog{
		entries:  make([]Entry, 0, len(entries)),
		byKey:    make(map[string]int, len(entries)),
		source:   source,
		loadedAt: time.Now(),
	}

	for _, e := range entries {
		e.Name = strings.TrimSpace(e.Name)
		key := Key(e.Name)
		if key == "" {
			continue
		}
		if _, exists := c.byKey[key]; exists {
			c.duplicates = append(c.duplicates, e.Name)
			continue
		}
		c.byKey[key] = len(c.entries)
		c.entries = append(c.entries, e)
	}

	return c
}

// Empty returns a catalog with no entries.
func Empty() *Catalog {
	return New(nil)
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// At returns the i-th entry in catalog order.
func (c *Catalog) At(i int) Entry {
	return c.entries[i]
}

// Entries returns a copy of all entries in catalog order.
func (c *Catalog) Entries() []Entry {
	if c == nil {
		return nil
	}
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Lookup finds an entry by exact, case-insensitive name.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	i, ok := c.byKey[Key(name)]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Duplicates lists the names that were skipped because an entry with the
// same case-insensitive name came first.
func (c *Catalog) Duplicates() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.duplicates...)
}

// Source describes where the entries were loaded from.
func (c *Catalog) Source() string {
	if c == nil {
		return ""
	}
	return c.source
}

// LoadedAt is the time the snapshot was built.
func (c *Catalog) LoadedAt() time.Time {
	if c == nil {
		return time.Time{}
	}
	return c.loadedAt
}

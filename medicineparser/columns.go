package medicineparser

import (
	"fmt"
	"strings"

	"github.com/harithra-blueberry/aiprescription/catalog"
)

// Columns is the canonical header of the medicine dataset.
var Columns = []string{
	"Name",
	"Category",
	"Dosage Form",
	"Strength",
	"Manufacturer",
	"Indication",
	"Classification",
}

type column int

const (
	colName column = iota
	colCategory
	colDosageForm
	colStrength
	colManufacturer
	colIndication
	colClassification
	numColumns
)

// headerKey folds "Dosage Form", "dosage_form" and "DosageForm" together.
func headerKey(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

var headerColumns = func() map[string]column {
	m := make(map[string]column, len(Columns))
	for i, name := range Columns {
		m[headerKey(name)] = column(i)
	}
	return m
}()

// layout maps dataset columns to positions in a row; -1 means missing.
type layout [numColumns]int

func parseHeader(header []string) (layout, error) {
	var l layout
	for i := range l {
		l[i] = -1
	}
	for pos, h := range header {
		if c, ok := headerColumns[headerKey(h)]; ok && l[c] == -1 {
			l[c] = pos
		}
	}
	if l[colName] == -1 {
		return l, fmt.Errorf("%w: got %q", ErrMissingNameColumn, header)
	}
	return l, nil
}

func (l layout) entry(row []string) catalog.Entry {
	get := func(c column) string {
		pos := l[c]
		if pos < 0 || pos >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[pos])
	}
	return catalog.Entry{
		Name:           get(colName),
		Category:       get(colCategory),
		DosageForm:     get(colDosageForm),
		Strength:       get(colStrength),
		Manufacturer:   get(colManufacturer),
		Indication:     get(colIndication),
		Classification: get(colClassification),
	}
}

// Stats summarizes one catalog load.
type Stats struct {
	Rows             int
	Loaded           int
	SkippedEmptyName int
	Duplicates       int
}

// buildCatalog turns data rows into a catalog. A file whose rows hold no
// named medicine is rejected so it can never replace a working catalog.
func buildCatalog(l layout, rows [][]string, source string) (*catalog.Catalog, Stats, error) {
	stats := Stats{Rows: len(rows)}
	entries := make([]catalog.Entry, 0, len(rows))

	for _, row := range rows {
		e := l.entry(row)
		if e.Name == "" {
			stats.SkippedEmptyName++
			continue
		}
		entries = append(entries, e)
	}

	c := catalog.NewFromSource(entries, source)
	stats.Loaded = c.Len()
	stats.Duplicates = len(c.Duplicates())
	if stats.Loaded == 0 {
		return nil, stats, fmt.Errorf("%w: %s has no named medicines", ErrEmptyCatalogFile, source)
	}
	return c, stats, nil
}

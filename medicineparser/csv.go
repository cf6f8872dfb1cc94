// Package medicineparser loads the medicine dataset from CSV or XLSX files,
// local or downloaded, into a catalog snapshot.
package medicineparser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/harithra-blueberry/aiprescription/catalog"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decode returns a UTF-8 reader over raw. Spreadsheet exports from Windows
// tools arrive in Windows-1252, so anything that is not valid UTF-8 is
// decoded from that charset.
func decode(raw []byte) io.Reader {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return bytes.NewReader(raw)
	}
	return charmap.Windows1252.NewDecoder().Reader(bytes.NewReader(raw))
}

// LoadCSV reads a comma-separated medicine dataset. The first record is the
// header; columns are matched by name, so their order does not matter and
// unknown columns are ignored.
func LoadCSV(r io.Reader, source string) (*catalog.Catalog, Stats, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to read catalog %s: %w", source, err)
	}

	reader := csv.NewReader(decode(raw))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to parse catalog %s: %w", source, err)
	}
	if len(records) == 0 {
		return nil, Stats{}, fmt.Errorf("%w: %s", ErrEmptyCatalogFile, source)
	}

	l, err := parseHeader(records[0])
	if err != nil {
		return nil, Stats{}, fmt.Errorf("catalog %s: %w", source, err)
	}

	return buildCatalog(l, records[1:], source)
}

package medicineparser

import (
	"bytes"
	"fmt"
	"io"

	"github.com/harithra-blueberry/aiprescription/catalog"
	"github.com/harithra-blueberry/aiprescription/logging"
	"github.com/xuri/excelize/v2"
)

// LoadXLSX reads the medicine dataset from the first sheet of a workbook.
func LoadXLSX(r io.Reader, source string) (*catalog.Catalog, Stats, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to open workbook %s: %w", source, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("Failed to close workbook", "source", source, "error", err)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, Stats{}, fmt.Errorf("%w: %s has no sheets", ErrEmptyCatalogFile, source)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to read sheet %q of %s: %w", sheets[0], source, err)
	}
	if len(rows) == 0 {
		return nil, Stats{}, fmt.Errorf("%w: %s", ErrEmptyCatalogFile, source)
	}

	l, err := parseHeader(rows[0])
	if err != nil {
		return nil, Stats{}, fmt.Errorf("catalog %s: %w", source, err)
	}

	return buildCatalog(l, rows[1:], source)
}

// ExportXLSX writes the catalog as a single-sheet workbook with the
// canonical header, in catalog order.
func ExportXLSX(c *catalog.Catalog) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("Failed to close workbook", "error", err)
		}
	}()

	const sheet = "Medicines"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, h := range Columns {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, e := range c.Entries() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{e.Name, e.Category, e.DosageForm, e.Strength, e.Manufacturer, e.Indication, e.Classification}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 24)
	_ = f.SetColWidth(sheet, "B", "G", 18)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

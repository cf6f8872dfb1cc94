package medicineparser

import "errors"

var (
	ErrEmptyCatalogFile  = errors.New("catalog file has no rows")
	ErrMissingNameColumn = errors.New("catalog header has no Name column")
	ErrUnsupportedFormat = errors.New("unsupported catalog format")
	ErrDownload          = errors.New("catalog download failed")
)

package medicineparser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/harithra-blueberry/aiprescription/catalog"
	"github.com/harithra-blueberry/aiprescription/interfaces"
	"github.com/harithra-blueberry/aiprescription/logging"
)

// Compile-time check to ensure Parser implements CatalogLoader
var _ interfaces.CatalogLoader = (*Parser)(nil)

// Parser loads the catalog from a local path or an http(s) URL. The format
// is chosen by extension: .xlsx for workbooks, anything else as CSV. An
// empty location loads the built-in catalog.
type Parser struct {
	location string
	client   *http.Client
}

// NewParser creates a parser for the given catalog location.
func NewParser(location string) *Parser {
	return &Parser{
		location: strings.TrimSpace(location),
		client:   newDownloadClient(),
	}
}

// WithHTTPClient replaces the client used for remote catalogs.
func (p *Parser) WithHTTPClient(c *http.Client) *Parser {
	p.client = c
	return p
}

// Location returns where the catalog is read from.
func (p *Parser) Location() string {
	if p.location == "" {
		return catalog.DefaultSource
	}
	return p.location
}

// LoadCatalog implements the CatalogLoader interface
func (p *Parser) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	if p.location == "" {
		logging.Info("No catalog file configured, using built-in catalog")
		return catalog.Default(), nil
	}

	start := time.Now()

	raw, name, err := p.read(ctx)
	if err != nil {
		return nil, err
	}

	var (
		c     *catalog.Catalog
		stats Stats
	)
	switch strings.ToLower(path.Ext(name)) {
	case ".xlsx":
		c, stats, err = LoadXLSX(bytes.NewReader(raw), p.location)
	case ".csv", ".txt", "":
		c, stats, err = LoadCSV(bytes.NewReader(raw), p.location)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	if err != nil {
		return nil, err
	}

	if stats.SkippedEmptyName > 0 {
		logging.Warn("Catalog rows without a name skipped",
			"source", p.location,
			"count", stats.SkippedEmptyName,
		)
	}
	if stats.Duplicates > 0 {
		logging.Warn("Duplicate medicine names detected",
			"source", p.location,
			"total", stats.Duplicates,
			"names", c.Duplicates(),
		)
	}

	logging.Info("Catalog parsed",
		"source", p.location,
		"rows", stats.Rows,
		"entries", stats.Loaded,
		"duration", time.Since(start).String(),
	)

	return c, nil
}

// read returns the raw file and the name used to pick its format.
func (p *Parser) read(ctx context.Context) ([]byte, string, error) {
	if u, err := url.Parse(p.location); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		raw, err := download(ctx, p.client, p.location)
		if err != nil {
			return nil, "", err
		}
		return raw, u.Path, nil
	}

	cleanPath := filepath.Clean(p.location)
	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open catalog %s: %w", cleanPath, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("Failed to close catalog file", "error", err)
		}
	}()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read catalog %s: %w", cleanPath, err)
	}
	return raw, cleanPath, nil
}

// Package renderer turns a formatted prescription into a paginated PDF.
package renderer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/harithra-blueberry/aiprescription/interfaces"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ContentTypePDF is the media type of rendered documents.
const ContentTypePDF = "application/pdf"

var ErrRender = errors.New("failed to render document")

// Compile-time check to ensure PDFRenderer implements Renderer
var _ interfaces.Renderer = (*PDFRenderer)(nil)

func init() {
	// Keep pdfcpu from creating its config directory under $HOME.
	api.DisableConfigDir()
}

// PDFRenderer lays out text with a Layout and builds the PDF with pdfcpu's
// JSON content description.
type PDFRenderer struct {
	layout Layout
	paper  string
}

// NewPDFRenderer creates a renderer for US Letter pages.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{layout: LetterLayout(), paper: "Letter"}
}

// ContentType implements the Renderer interface
func (r *PDFRenderer) ContentType() string {
	return ContentTypePDF
}

type fontSpec struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

type textBox struct {
	Value string     `json:"value"`
	Pos   [2]float64 `json:"pos"`
	Font  fontSpec   `json:"font"`
}

type pageContent struct {
	Text []textBox `json:"text,omitempty"`
}

type pageSpec struct {
	Content pageContent `json:"content"`
}

type document struct {
	Paper  string              `json:"paper"`
	Origin string              `json:"origin"`
	Pages  map[string]pageSpec `json:"pages"`
}

func (r *PDFRenderer) describe(text string) document {
	doc := document{
		Paper:  r.paper,
		Origin: "LowerLeft",
		Pages:  make(map[string]pageSpec),
	}

	font := fontSpec{Name: r.layout.FontName, Size: r.layout.FontSize}
	for i, page := range r.layout.Paginate(text) {
		var content pageContent
		for _, line := range page.Lines {
			if line.Text == "" {
				continue
			}
			content.Text = append(content.Text, textBox{
				Value: line.Text,
				Pos:   [2]float64{line.X, line.Y},
				Font:  font,
			})
		}
		doc.Pages[strconv.Itoa(i+1)] = pageSpec{Content: content}
	}

	return doc
}

// Render implements the Renderer interface
func (r *PDFRenderer) Render(text string) ([]byte, error) {
	desc, err := json.Marshal(r.describe(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}

	var out bytes.Buffer
	if err := api.Create(nil, bytes.NewReader(desc), &out, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}

	return out.Bytes(), nil
}

// PageCount returns the number of pages of a PDF document.
func PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return n, nil
}

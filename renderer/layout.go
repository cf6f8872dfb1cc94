package renderer

import "strings"

// Layout positions text lines on fixed-size pages. Coordinates are in
// points with the origin at the lower-left corner.
type Layout struct {
	PageWidth  float64
	PageHeight float64
	Margin     float64
	LineHeight float64
	X          float64
	FontName   string
	FontSize   int
}

// LetterLayout is a US Letter page written top-down from 50pt below the
// top edge, one line every 15pt, breaking to a new page under 50pt.
func LetterLayout() Layout {
	return Layout{
		PageWidth:  612,
		PageHeight: 792,
		Margin:     50,
		LineHeight: 15,
		X:          30,
		FontName:   "Helvetica",
		FontSize:   12,
	}
}

// Line is one placed line of text.
type Line struct {
	X    float64
	Y    float64
	Text string
}

// Page holds the lines placed on one page, top to bottom.
type Page struct {
	Lines []Line
}

// LinesPerPage returns how many lines fit on one page.
func (l Layout) LinesPerPage() int {
	if l.LineHeight <= 0 {
		return 1
	}
	n := int((l.PageHeight-2*l.Margin)/l.LineHeight) + 1
	return max(n, 1)
}

// Paginate splits text on newlines and places every line. Blank lines take
// up space but carry no text. Empty text yields one page.
func (l Layout) Paginate(text string) []Page {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")

	top := l.PageHeight - l.Margin
	pages := []Page{{}}
	y := top
	newPage := false

	for _, raw := range strings.Split(text, "\n") {
		if newPage {
			pages = append(pages, Page{})
			y = top
			newPage = false
		}

		current := &pages[len(pages)-1]
		current.Lines = append(current.Lines, Line{X: l.X, Y: y, Text: raw})

		y -= l.LineHeight
		if y < l.Margin {
			newPage = true
		}
	}

	return pages
}

package export

import (
	_ "embed"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"

	"github.com/harrylevesque/listqr/internal/models"
	"github.com/harrylevesque/listqr/internal/viewer"
)

const (
	pdfFont       = "DejaVu"
	pdfLineHeight = 5.0
	pdfRowPadding = 1.5
)

var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	fontRegular []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	fontBold []byte
)

// PDF writes the list as an A4 table: the title, a header row from the
// first item's keys, then one row per item. Cells wrap; rows that do not fit
// move to a new page with the header repeated.
func PDF(w io.Writer, l models.List) error {
	pdf := newDocument()
	pdf.SetTitle(l.Title, true)
	pdf.AddPage()

	pdf.SetFont(pdfFont, "B", 18)
	pdf.MultiCell(0, 8, bmpOnly(l.Title), "", "L", false)
	pdf.Ln(4)

	header := viewer.Header(l)
	if len(header) > 0 {
		pageW, _ := pdf.GetPageSize()
		left, _, right, _ := pdf.GetMargins()
		colW := (pageW - left - right) / float64(len(header))

		drawHeader := func() {
			pdf.SetFont(pdfFont, "B", 11)
			pdf.SetFillColor(230, 230, 230)
			drawRow(pdf, header, colW, true)
			pdf.SetFont(pdfFont, "", 10)
		}
		drawHeader()
		_, pageH := pdf.GetPageSize()
		_, _, _, bottom := pdf.GetMargins()
		for _, row := range viewer.Rows(l) {
			if pdf.GetY()+rowHeight(pdf, row, colW) > pageH-bottom {
				pdf.AddPage()
				drawHeader()
			}
			drawRow(pdf, row, colW, false)
		}
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func newDocument() *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddUTF8FontFromBytes(pdfFont, "", fontRegular)
	pdf.AddUTF8FontFromBytes(pdfFont, "B", fontBold)
	pdf.SetAutoPageBreak(false, 15)
	return pdf
}

func rowHeight(pdf *fpdf.Fpdf, cells []string, colW float64) float64 {
	lines := 1
	for _, c := range cells {
		lines = max(lines, len(wrap(pdf, c, colW-2*pdf.GetCellMargin())))
	}
	return float64(lines)*pdfLineHeight + 2*pdfRowPadding
}

// drawRow draws one bordered row whose height fits its tallest cell.
func drawRow(pdf *fpdf.Fpdf, cells []string, colW float64, fill bool) {
	h := rowHeight(pdf, cells, colW)
	x0, y0 := pdf.GetXY()
	style := "D"
	if fill {
		style = "FD"
	}
	for i, c := range cells {
		x := x0 + float64(i)*colW
		pdf.Rect(x, y0, colW, h, style)
		for j, line := range wrap(pdf, c, colW-2*pdf.GetCellMargin()) {
			pdf.SetXY(x, y0+pdfRowPadding+float64(j)*pdfLineHeight)
			pdf.CellFormat(colW, pdfLineHeight, line, "", 0, "L", false, 0, "")
		}
	}
	pdf.SetXY(x0, y0+h)
}

// wrap breaks text into lines no wider than limit, splitting on spaces and
// inside words that are wider than a whole line. No text is dropped.
func wrap(pdf *fpdf.Fpdf, text string, limit float64) []string {
	var lines []string
	for _, para := range strings.Split(bmpOnly(text), "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if pdf.GetStringWidth(candidate) <= limit {
				line = candidate
				continue
			}
			if line != "" {
				lines = append(lines, line)
				line = ""
			}
			for pdf.GetStringWidth(word) > limit {
				head := splitAt(pdf, word, limit)
				lines = append(lines, head)
				word = word[len(head):]
			}
			line = word
		}
		lines = append(lines, line)
	}
	return lines
}

// splitAt returns the longest prefix of word (at least one rune) within limit.
func splitAt(pdf *fpdf.Fpdf, word string, limit float64) string {
	end := 0
	for i, r := range word {
		next := i + len(string(r))
		if end > 0 && pdf.GetStringWidth(word[:next]) > limit {
			break
		}
		end = next
	}
	return word[:end]
}

// bmpOnly replaces runes outside the Basic Multilingual Plane with U+FFFD.
// fpdf sizes its UTF-8 width table to the BMP.
func bmpOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r > 0xFFFF {
			return utf8.RuneError
		}
		return r
	}, s)
}

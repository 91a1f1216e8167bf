package encode

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rotisserie/eris"

	"github.com/totalaudiopromo/intel-export/internal/model"
)

// Page geometry in millimetres (A4 portrait).
const (
	pageWidth     = 210.0
	pageHeight    = 297.0
	marginX       = 20.0
	contentWidth  = pageWidth - 2*marginX
	headerHeight  = 40.0
	accentHeight  = 2.0
	contentTop    = 60.0
	contentBottom = 270.0
	footerTop     = 280.0
	lineHeight    = 5.0
	rowHeight     = 8.0
)

type rgb struct{ r, g, b int }

var (
	colorPrimary   = rgb{30, 136, 229}
	colorSecondary = rgb{245, 247, 250}
	colorAccent    = rgb{255, 193, 7}
	colorTextDark  = rgb{33, 37, 41}
	colorTextLight = rgb{108, 117, 125}
	colorBorder    = rgb{222, 226, 230}
	colorSuccess   = rgb{40, 167, 69}
	colorWarning   = rgb{255, 193, 7}
	colorDanger    = rgb{220, 53, 69}
	colorWhite     = rgb{255, 255, 255}
)

// hexToRGB parses "#RRGGBB" or "RRGGBB", falling back to the default primary.
func hexToRGB(s string) rgb {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return colorPrimary
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return colorPrimary
	}
	return rgb{int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)}
}

func tierColor(t model.ConfidenceTier) rgb {
	switch t {
	case model.ConfidenceHigh:
		return colorSuccess
	case model.ConfidenceMedium:
		return colorWarning
	default:
		return colorDanger
	}
}

// document lays out a branded report. Content is drawn top-down; the footer
// is stamped on every page by finish once the page count is known.
type document struct {
	pdf      *fpdf.Fpdf
	tr       func(string) string
	s        Settings
	primary  rgb
	title    string
	subtitle string
	y        float64
}

func newDocument(title string, s Settings) *document {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(marginX, contentTop, marginX)
	pdf.SetCreationDate(s.GeneratedAt)
	pdf.SetModificationDate(s.GeneratedAt)
	pdf.SetCreator(orDefault(s.WhiteLabel.CompanyName, "Audio Intel"), true)
	pdf.SetTitle(title, true)
	pdf.SetCatalogSort(true)
	return &document{
		pdf:     pdf,
		tr:      pdf.UnicodeTranslatorFromDescriptor(""),
		s:       s,
		primary: hexToRGB(s.WhiteLabel.PrimaryColor),
		title:   title,
	}
}

func (d *document) fill(c rgb)      { d.pdf.SetFillColor(c.r, c.g, c.b) }
func (d *document) textColor(c rgb) { d.pdf.SetTextColor(c.r, c.g, c.b) }
func (d *document) draw(c rgb)      { d.pdf.SetDrawColor(c.r, c.g, c.b) }

// section starts a logical section on a fresh page.
func (d *document) section(title, subtitle string) {
	d.title, d.subtitle = title, subtitle
	d.newPage()
}

func (d *document) newPage() {
	d.pdf.AddPage()
	d.header()
	d.y = contentTop
}

func (d *document) header() {
	d.fill(d.primary)
	d.pdf.Rect(0, 0, pageWidth, headerHeight, "F")
	d.fill(colorAccent)
	d.pdf.Rect(0, headerHeight, pageWidth, accentHeight, "F")

	d.textColor(colorWhite)
	d.pdf.SetFont("Helvetica", "B", 10)
	d.pdf.Text(marginX, 12, d.tr(orDefault(d.s.WhiteLabel.CompanyName, "Audio Intel")))
	d.pdf.SetFont("Helvetica", "B", 18)
	d.pdf.Text(marginX, 24, d.tr(d.fit(d.title, contentWidth)))
	if d.subtitle != "" {
		d.pdf.SetFont("Helvetica", "", 10)
		d.pdf.Text(marginX, 33, d.tr(d.fit(d.subtitle, contentWidth)))
	}
}

// ensureSpace breaks the page when h more millimetres would not fit. It
// reports whether a break happened.
func (d *document) ensureSpace(h float64) bool {
	if d.y+h <= contentBottom {
		return false
	}
	d.newPage()
	return true
}

func (d *document) heading(text string) {
	d.ensureSpace(14)
	d.textColor(d.primary)
	d.pdf.SetFont("Helvetica", "B", 13)
	d.pdf.Text(marginX, d.y+5, d.tr(text))
	d.draw(colorBorder)
	d.pdf.SetLineWidth(0.3)
	d.pdf.Line(marginX, d.y+8, marginX+contentWidth, d.y+8)
	d.y += 12
}

// wrap splits text into lines no wider than w at the given font. Words are
// measured in UTF-8 and each finished line is translated to the font's code
// page, so the returned lines are ready for Text. Words wider than w are
// broken across lines.
func (d *document) wrap(text string, w float64, style string, size float64) []string {
	d.pdf.SetFont("Helvetica", style, size)
	var out []string
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := ""
		for _, word := range words {
			if line != "" && d.width(line+" "+word) <= w {
				line += " " + word
				continue
			}
			if line != "" {
				out = append(out, d.tr(line))
			}
			for d.width(word) > w {
				head, rest := d.splitWord(word, w)
				out = append(out, d.tr(head))
				word = rest
			}
			line = word
		}
		if line != "" {
			out = append(out, d.tr(line))
		}
	}
	return out
}

// width measures s at the current font after code page translation.
func (d *document) width(s string) float64 {
	return d.pdf.GetStringWidth(d.tr(s))
}

// splitWord returns the longest prefix of s that fits w, at least one rune,
// and the remainder.
func (d *document) splitWord(s string, w float64) (string, string) {
	r := []rune(s)
	n := 1
	for n < len(r) && d.width(string(r[:n+1])) <= w {
		n++
	}
	return string(r[:n]), string(r[n:])
}

// paragraph writes wrapped text at x, breaking pages between lines.
func (d *document) paragraph(text string, x float64, style string, size float64, c rgb) {
	w := marginX + contentWidth - x
	for _, line := range d.wrap(text, w, style, size) {
		if d.ensureSpace(lineHeight) {
			d.pdf.SetFont("Helvetica", style, size)
		}
		d.textColor(c)
		d.pdf.Text(x, d.y+3.5, line)
		d.y += lineHeight
	}
}

// fit truncates s with an ellipsis so it renders within w at the current font.
func (d *document) fit(s string, w float64) string {
	if d.width(s) <= w {
		return s
	}
	r := []rune(s)
	for len(r) > 0 {
		r = r[:len(r)-1]
		if d.width(string(r)+"...") <= w {
			return string(r) + "..."
		}
	}
	return ""
}

type metric struct {
	label string
	value string
}

// cards draws up to four metric tiles in a row.
func (d *document) cards(metrics ...metric) {
	if len(metrics) == 0 {
		return
	}
	const h, gap = 22.0, 5.0
	d.ensureSpace(h + 6)
	w := (contentWidth - gap*float64(len(metrics)-1)) / float64(len(metrics))
	for i, m := range metrics {
		x := marginX + float64(i)*(w+gap)
		d.fill(colorSecondary)
		d.draw(colorBorder)
		d.pdf.SetLineWidth(0.2)
		d.pdf.Rect(x, d.y, w, h, "FD")
		d.fill(d.primary)
		d.pdf.Rect(x, d.y, 1.5, h, "F")

		d.textColor(colorTextDark)
		d.pdf.SetFont("Helvetica", "B", 15)
		d.pdf.Text(x+5, d.y+10, d.tr(d.fit(m.value, w-7)))
		d.textColor(colorTextLight)
		d.pdf.SetFont("Helvetica", "", 8)
		d.pdf.Text(x+5, d.y+17, d.tr(d.fit(m.label, w-7)))
	}
	d.y += h + 8
}

type pdfColumn struct {
	header string
	width  float64
}

// table draws a bordered listing, repeating the header row on every page.
func (d *document) table(cols []pdfColumn, rows [][]string) {
	head := func() {
		d.fill(d.primary)
		d.textColor(colorWhite)
		d.draw(colorBorder)
		d.pdf.SetFont("Helvetica", "B", 9)
		d.pdf.SetXY(marginX, d.y)
		for _, c := range cols {
			d.pdf.CellFormat(c.width, rowHeight, d.tr(d.fit(c.header, c.width-2)), "1", 0, "L", true, 0, "")
		}
		d.y += rowHeight
	}

	d.ensureSpace(2 * rowHeight)
	head()
	for i, row := range rows {
		if d.ensureSpace(rowHeight) {
			head()
		}
		if i%2 == 1 {
			d.fill(colorSecondary)
		} else {
			d.fill(colorWhite)
		}
		d.textColor(colorTextDark)
		d.pdf.SetFont("Helvetica", "", 8)
		d.pdf.SetXY(marginX, d.y)
		for j, c := range cols {
			v := ""
			if j < len(row) {
				v = row[j]
			}
			d.pdf.CellFormat(c.width, rowHeight, d.tr(d.fit(v, c.width-2)), "1", 0, "L", true, 0, "")
		}
		d.y += rowHeight
	}
	d.y += 6
}

// dot draws a confidence marker centred at (x, y).
func (d *document) dot(x, y float64, t model.ConfidenceTier) {
	d.fill(tierColor(t))
	d.pdf.Circle(x, y, 1.6, "F")
}

// finish stamps the footer on every page, serializes the document and
// validates the result.
func (d *document) finish() (Payload, error) {
	n := d.pdf.PageCount()
	company := orDefault(d.s.WhiteLabel.CompanyName, "Audio Intel")
	date := d.s.GeneratedAt.Format("02 Jan 2006")
	for i := 1; i <= n; i++ {
		d.pdf.SetPage(i)
		d.fill(colorSecondary)
		d.pdf.Rect(0, footerTop-3, pageWidth, pageHeight-footerTop+3, "F")
		d.draw(colorBorder)
		d.pdf.SetLineWidth(0.3)
		d.pdf.Line(marginX, footerTop-3, marginX+contentWidth, footerTop-3)

		// Alternate styles so the font is written into this page's stream.
		d.pdf.SetFont("Helvetica", "B", 8)
		d.pdf.SetFont("Helvetica", "", 8)
		d.textColor(colorTextLight)
		d.pdf.Text(marginX, footerTop+5, d.tr("Generated by "+company))
		d.pdf.Text(marginX, footerTop+10, d.tr("Generated on "+date))
		label := fmt.Sprintf("Page %d of %d", i, n)
		d.pdf.Text(marginX+contentWidth-d.pdf.GetStringWidth(label), footerTop+5, label)
	}

	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return Payload{}, eris.Wrap(err, "pdf: render document")
	}
	pages, err := validatePDF(buf.Bytes())
	if err != nil {
		return Payload{}, err
	}
	return Payload{Data: buf.Bytes(), MIMEType: MIMEDocument, Extension: "pdf", Pages: pages}, nil
}

var pdfcpuInit sync.Once

// validatePDF parses data with pdfcpu and returns its page count.
func validatePDF(data []byte) (int, error) {
	pdfcpuInit.Do(api.DisableConfigDir)
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), pdfmodel.NewDefaultConfiguration())
	if err != nil {
		return 0, eris.Wrap(err, "pdf: validate document")
	}
	return ctx.PageCount, nil
}

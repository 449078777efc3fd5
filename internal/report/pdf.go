package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"example.com/c3dkit/internal/common"
)

// PDFOptions controls rendering of the capture report.
type PDFOptions struct {
	// Title overrides the localised default title.
	Title  string
	Lang   Language
	QRSize int
}

const qrImageName = "digest-qr"

// SaveSummaryPDF renders the summary into a PDF file at out.
func SaveSummaryPDF(s Summary, out string, opts PDFOptions) error {
	pdf, err := renderSummaryPDF(s, opts)
	if err != nil {
		return err
	}
	return pdf.OutputFileAndClose(out)
}

// WriteSummaryPDF renders the summary into w.
func WriteSummaryPDF(w io.Writer, s Summary, opts PDFOptions) error {
	pdf, err := renderSummaryPDF(s, opts)
	if err != nil {
		return err
	}
	return pdf.Output(w)
}

func renderSummaryPDF(s Summary, opts PDFOptions) (*gofpdf.Fpdf, error) {
	tr := NewTranslator(opts.Lang)
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = tr.T("title")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAuthor("c3dctl", false)
	pdf.SetCreator("c3dctl", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	addPDFTitle(pdf, title)
	if err := addFileSection(pdf, tr, s, opts.QRSize); err != nil {
		return nil, err
	}
	addCaptureSection(pdf, tr, s)
	addMarkerSection(pdf, tr, s.Markers)
	addAnalogSection(pdf, tr, s.Analog)
	addEventSection(pdf, tr, s.Events)
	addGroupSection(pdf, tr, s.Groups)

	if pdf.Err() {
		return nil, pdf.Error()
	}
	return pdf, nil
}

var turkishFold = strings.NewReplacer("ğ", "g", "Ğ", "G", "ş", "s", "Ş", "S", "ı", "i", "İ", "I")

// pdfText converts UTF-8 to the cp1252 bytes the core PDF fonts expect.
// Letters outside cp1252 are folded to ASCII first.
func pdfText(s string) string {
	enc := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())
	out, err := enc.String(turkishFold.Replace(s))
	if err != nil {
		return s
	}
	return out
}

func addPDFTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, pdfText(title))
	pdf.Ln(12)
}

func addSectionHeading(pdf *gofpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, pdfText(text))
	pdf.Ln(9)
}

type kv struct {
	label string
	value string
}

func addKeyValues(pdf *gofpdf.Fpdf, items []kv, labelWidth, valueWidth float64) {
	pdf.SetFont("Helvetica", "", 10)
	for _, item := range items {
		pdf.CellFormat(labelWidth, 6, pdfText(item.label), "", 0, "L", false, 0, "")
		pdf.CellFormat(valueWidth, 6, pdfText(emptyFallback(item.value, "-")), "", 1, "L", false, 0, "")
	}
}

func addFileSection(pdf *gofpdf.Fpdf, tr Translator, s Summary, qrSize int) error {
	addSectionHeading(pdf, tr.T("section.file"))
	top := pdf.GetY()

	digest := s.SHA256
	if len(digest) > 32 {
		digest = digest[:32] + "\n" + digest[32:]
	}
	items := []kv{
		{tr.T("label.file"), s.File},
		{tr.T("label.size"), sizeLabel(s.SizeBytes)},
		{tr.T("label.generated"), s.GeneratedAt.Format(time.RFC3339)},
	}
	addKeyValues(pdf, items, 45, 90)
	if s.SHA256 != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(45, 6, pdfText(tr.T("label.sha256")), "", 0, "L", false, 0, "")
		pdf.SetFont("Courier", "", 9)
		pdf.MultiCell(90, 5, digest, "", "L", false)
	}

	if s.SHA256 == "" {
		pdf.Ln(4)
		return nil
	}
	png, err := DigestToQR(s.SHA256, qrSize)
	if err != nil {
		return fmt.Errorf("digest qr: %w", err)
	}
	pdf.RegisterImageOptionsReader(qrImageName, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
	const side = 35.0
	pdf.ImageOptions(qrImageName, 160, top, side, side, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	pdf.SetXY(150, top+side)
	pdf.SetFont("Helvetica", "", 7)
	pdf.MultiCell(45, 3, pdfText(tr.T("msg.qr")), "", "C", false)

	if y := top + side + 8; pdf.GetY() < y {
		pdf.SetY(y)
	}
	pdf.SetX(15)
	pdf.Ln(2)
	return nil
}

func addCaptureSection(pdf *gofpdf.Fpdf, tr Translator, s Summary) {
	addSectionHeading(pdf, tr.T("section.capture"))
	items := []kv{
		{tr.T("label.processor"), s.Processor},
		{tr.T("label.storage"), s.Storage},
		{tr.T("label.scale"), formatFloat(s.Scale)},
		{tr.T("label.frameRate"), tr.Format("unit.hz", s.FrameRate)},
		{tr.T("label.frames"), fmt.Sprintf("%d / %d / %d", s.FirstFrame, s.DeclaredFrames, s.FramesRead)},
		{tr.T("label.duration"), tr.Format("unit.seconds", s.DurationSec)},
		{tr.T("label.points"), strconv.Itoa(s.PointCount) + " " + s.PointUnits},
		{tr.T("label.analog"), fmt.Sprintf("%d x %d", s.AnalogChannels, s.AnalogSubFrames)},
		{tr.T("label.analogRate"), tr.Format("unit.hz", s.AnalogRate)},
		{tr.T("label.parameters"), strconv.Itoa(s.Parameters)},
		{tr.T("label.truncated"), tr.YesNo(s.Truncated)},
	}
	addKeyValues(pdf, items, 65, 0)
	pdf.Ln(4)
}

func addTableHeader(pdf *gofpdf.Fpdf, headers []string, widths []float64) {
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 9)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, pdfText(h), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 8)
}

func addNone(pdf *gofpdf.Fpdf, tr Translator) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 6, pdfText(tr.T("msg.none")), "", "L", false)
	pdf.Ln(2)
}

func addMarkerSection(pdf *gofpdf.Fpdf, tr Translator, markers []MarkerStats) {
	addSectionHeading(pdf, tr.T("section.markers"))
	if len(markers) == 0 {
		addNone(pdf, tr)
		return
	}
	headers := []string{tr.T("col.label"), tr.T("col.valid"), tr.T("col.coverage"), tr.T("col.mean"), tr.T("col.std"), tr.T("col.residual"), tr.T("col.cameras")}
	widths := []float64{24, 14, 18, 46, 38, 18, 22}
	addTableHeader(pdf, headers, widths)
	for _, m := range markers {
		renderTableRow(pdf, widths, []string{
			m.Label,
			strconv.Itoa(m.ValidFrames),
			fmt.Sprintf("%.1f%%", m.Coverage*100),
			formatTriple(m.Mean),
			formatTriple(m.StdDev),
			formatFloat(m.MeanResidual),
			joinInts(m.Cameras),
		}, 5)
	}
	pdf.Ln(4)
}

func addAnalogSection(pdf *gofpdf.Fpdf, tr Translator, channels []ChannelStats) {
	addSectionHeading(pdf, tr.T("section.analog"))
	if len(channels) == 0 {
		addNone(pdf, tr)
		return
	}
	headers := []string{tr.T("col.label"), tr.T("col.unit"), tr.T("col.samples"), tr.T("col.min"), tr.T("col.max"), tr.T("col.mean"), tr.T("col.std"), tr.T("col.rms")}
	widths := []float64{26, 14, 18, 22, 22, 22, 28, 28}
	addTableHeader(pdf, headers, widths)
	for _, c := range channels {
		renderTableRow(pdf, widths, []string{
			c.Label,
			c.Unit,
			strconv.Itoa(c.Samples),
			formatFloat(c.Min),
			formatFloat(c.Max),
			formatFloat(c.Mean),
			formatFloat(c.StdDev),
			formatFloat(c.RMS),
		}, 5)
	}
	pdf.Ln(4)
}

func addEventSection(pdf *gofpdf.Fpdf, tr Translator, events []EventInfo) {
	addSectionHeading(pdf, tr.T("section.events"))
	if len(events) == 0 {
		addNone(pdf, tr)
		return
	}
	widths := []float64{40, 40, 30}
	addTableHeader(pdf, []string{tr.T("col.label"), tr.T("col.time"), tr.T("col.display")}, widths)
	for _, ev := range events {
		renderTableRow(pdf, widths, []string{ev.Label, formatFloat(ev.Time), tr.YesNo(ev.Display)}, 5)
	}
	pdf.Ln(4)
}

func addGroupSection(pdf *gofpdf.Fpdf, tr Translator, groups []GroupInfo) {
	addSectionHeading(pdf, tr.T("section.groups"))
	if len(groups) == 0 {
		addNone(pdf, tr)
		return
	}
	widths := []float64{40, 110, 30}
	addTableHeader(pdf, []string{tr.T("col.label"), tr.T("col.description"), tr.T("col.parameters")}, widths)
	for _, g := range groups {
		renderTableRow(pdf, widths, []string{g.Name, g.Description, strconv.Itoa(g.Parameters)}, 5)
	}
}

func renderTableRow(pdf *gofpdf.Fpdf, widths []float64, values []string, lineHeight float64) {
	xStart := pdf.GetX()
	yStart := pdf.GetY()
	maxLines := 1
	splitCols := make([][]string, len(values))
	for i, val := range values {
		text := pdfText(emptyFallback(strings.TrimSpace(val), "-"))
		lines := pdf.SplitText(text, widths[i]-2)
		if len(lines) == 0 {
			lines = []string{""}
		}
		splitCols[i] = lines
		if len(lines) > maxLines {
			maxLines = len(lines)
		}
	}
	rowHeight := float64(maxLines) * lineHeight
	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if yStart+rowHeight > pageHeight-bottom {
		pdf.AddPage()
		xStart, yStart = pdf.GetX(), pdf.GetY()
	}
	x := xStart
	for i, lines := range splitCols {
		pdf.SetXY(x, yStart)
		pdf.MultiCell(widths[i], lineHeight, strings.Join(lines, "\n"), "1", "L", false)
		x += widths[i]
	}
	pdf.SetXY(xStart, yStart+rowHeight)
}

func emptyFallback(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}

func sizeLabel(n int64) string {
	if n <= 0 {
		return ""
	}
	return common.FormatBytes(n)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func formatTriple(v [3]float64) string {
	return fmt.Sprintf("%.2f, %.2f, %.2f", v[0], v[1], v[2])
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, " ")
}

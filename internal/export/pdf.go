package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"
)

// Размеры страницы PDF в миллиметрах.
const (
	pdfMargin       = 12.7
	pdfTitleHeight  = 10.0
	pdfHeaderHeight = 9.0
	pdfLineHeight   = 5.0
	pdfCellPadding  = 1.5
	pdfFontSize     = 10.0
)

// Колонки PDF. Колонки действий в выгрузке нет.
var pdfColumns = []struct {
	title string
	width float64
}{
	{title: "ID", width: 25},
	{title: "User", width: 95},
	{title: "Submitted", width: 70.5},
}

// Page — диапазон строк [Start, End) на одной странице.
type Page struct {
	Start int
	End   int
}

// Paginate раскладывает строки высотой heights по страницам, на каждой из
// которых под строки остаётся available. Строка никогда не разрывается,
// а строка выше страницы занимает отдельную страницу.
func Paginate(heights []float64, available float64) []Page {
	var pages []Page

	start := 0
	for start < len(heights) {
		end := start
		used := 0.0

		for end < len(heights) {
			if used+heights[end] > available && end > start {
				break
			}

			used += heights[end]
			end++
		}

		pages = append(pages, Page{Start: start, End: end})
		start = end
	}

	return pages
}

// PDF выгружает таблицу ID / User / Submitted на страницы Letter.
// Заголовок таблицы повторяется на каждой странице.
func PDF(w io.Writer, table Table) error {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Helvetica", "", pdfFontSize)

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	rows := make([][]string, 0, len(table.Responses))
	for _, r := range table.Responses {
		rows = append(rows, []string{
			strconv.Itoa(r.ID),
			tr(r.DisplayUsername()),
			formatTime(r.SubmittedAt.Time),
		})
	}

	heights := make([]float64, len(rows))
	for i, row := range rows {
		heights[i] = pdfRowHeight(pdf, row)
	}

	_, pageHeight := pdf.GetPageSize()
	available := pageHeight - 2*pdfMargin - pdfTitleHeight - pdfHeaderHeight

	title := table.Title
	if title == "" {
		title = "Survey"
	}

	for _, page := range Paginate(heights, available) {
		pdf.AddPage()

		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetXY(pdfMargin, pdfMargin)
		pdf.CellFormat(0, pdfTitleHeight, tr(title+" Responses"), "", 0, "L", false, 0, "")

		y := pdfMargin + pdfTitleHeight
		pdfHeader(pdf, y)
		y += pdfHeaderHeight

		pdf.SetFont("Helvetica", "", pdfFontSize)
		pdf.SetTextColor(0, 0, 0)

		for i := page.Start; i < page.End; i++ {
			pdfRow(pdf, rows[i], y, heights[i])
			y += heights[i]
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}

	return nil
}

func pdfHeader(pdf *fpdf.Fpdf, y float64) {
	pdf.SetFont("Helvetica", "B", pdfFontSize)
	pdf.SetFillColor(37, 99, 235)
	pdf.SetTextColor(255, 255, 255)

	x := pdfMargin
	for _, c := range pdfColumns {
		pdf.SetXY(x, y)
		pdf.CellFormat(c.width, pdfHeaderHeight, c.title, "1", 0, "C", true, 0, "")
		x += c.width
	}
}

func pdfRow(pdf *fpdf.Fpdf, row []string, y, height float64) {
	x := pdfMargin
	for i, c := range pdfColumns {
		pdf.Rect(x, y, c.width, height, "D")
		pdf.SetXY(x+pdfCellPadding, y+pdfCellPadding)
		pdf.MultiCell(c.width-2*pdfCellPadding, pdfLineHeight, row[i], "", "L", false)
		x += c.width
	}
}

func pdfRowHeight(pdf *fpdf.Fpdf, row []string) float64 {
	lines := 1
	for i, c := range pdfColumns {
		if n := len(pdf.SplitText(row[i], c.width-2*pdfCellPadding)); n > lines {
			lines = n
		}
	}

	return float64(lines)*pdfLineHeight + 2*pdfCellPadding
}

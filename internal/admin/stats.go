package admin

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/letsssgooo/surveySite/internal/domain/models"
)

// Ширина столбца диаграммы при максимальной оценке.
const chartWidth = 30

// Stats — статистика опроса в виде строк для отображения.
type Stats struct {
	Total   string
	Average string
	Highest string
	Lowest  string
}

// FormatStats форматирует статистику: число ответов с разделителями
// разрядов, оценки с двумя знаками после запятой.
func FormatStats(a models.Analytics) Stats {
	return Stats{
		Total:   humanize.Comma(int64(a.TotalResponses)),
		Average: decimal.NewFromFloat(a.AverageRating).StringFixed(2),
		Highest: decimal.NewFromFloat(a.HighestRating).StringFixed(2),
		Lowest:  decimal.NewFromFloat(a.LowestRating).StringFixed(2),
	}
}

// Bar — один столбец диаграммы оценок.
type Bar struct {
	Label string
	Value float64
}

// Bars возвращает столбцы Average, Highest и Lowest.
func Bars(a models.Analytics) []Bar {
	return []Bar{
		{Label: "Average", Value: a.AverageRating},
		{Label: "Highest", Value: a.HighestRating},
		{Label: "Lowest", Value: a.LowestRating},
	}
}

// RenderChart рисует горизонтальную диаграмму оценок по шкале 0..RatingMax.
func RenderChart(bars []Bar) string {
	var sb strings.Builder

	width := 0
	for _, b := range bars {
		width = max(width, len(b.Label))
	}

	scale := decimal.NewFromInt(chartWidth).Div(decimal.NewFromInt(models.RatingMax))

	for _, b := range bars {
		value := decimal.NewFromFloat(b.Value)
		if value.IsNegative() {
			value = decimal.Zero
		}

		n := int(value.Mul(scale).Round(0).IntPart())
		n = min(n, chartWidth)

		sb.WriteString(b.Label)
		sb.WriteString(strings.Repeat(" ", width-len(b.Label)))
		sb.WriteString(" |")
		sb.WriteString(strings.Repeat("#", n))
		sb.WriteString(strings.Repeat(" ", chartWidth-n))
		sb.WriteString("| ")
		sb.WriteString(value.StringFixed(2))
		sb.WriteString("\n")
	}

	return sb.String()
}

// Stats возвращает статистику выбранного опроса, если она загружена.
func (d *Dashboard) Stats() (Stats, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.analytics == nil {
		return Stats{}, false
	}

	return FormatStats(*d.analytics), true
}

// Chart рисует диаграмму оценок выбранного опроса.
// Без статистики возвращает пустую строку.
func (d *Dashboard) Chart() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.analytics == nil {
		return ""
	}

	return RenderChart(Bars(*d.analytics))
}

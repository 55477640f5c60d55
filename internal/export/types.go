package export

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/letsssgooo/surveySite/internal/domain/models"
)

// Format — формат выгрузки.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
)

// SheetName — имя листа с ответами в таблице.
const SheetName = "Responses"

// Формат даты отправки в выгрузках.
const timeLayout = "2006-01-02 15:04:05"

// Ошибки
var (
	ErrNoData        = errors.New("no data to export")
	ErrUnknownFormat = errors.New("unknown export format")
)

// ParseFormat разбирает имя формата (xlsx, excel, csv, pdf).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xlsx", "excel", "spreadsheet":
		return FormatXLSX, nil
	case "csv":
		return FormatCSV, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FileName возвращает имя файла выгрузки: <название>_Responses.<формат>.
func FileName(title string, format Format) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Survey"
	}

	title = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`/\:*?"<>|`, r) {
			return '_'
		}

		return r
	}, title)

	return title + "_Responses." + string(format)
}

// Table — данные для выгрузки: опрос и отфильтрованные ответы.
type Table struct {
	Title     string
	Questions []models.Question
	Responses []models.Response
}

type column struct {
	questionID int
	header     string
	rating     bool
}

// header возвращает заголовок таблицы: служебные колонки и по колонке на вопрос.
func (t Table) header() ([]string, []column) {
	columns := t.questionColumns()

	header := []string{"ID", "User", "Submitted", "Consent Given"}
	for _, c := range columns {
		header = append(header, c.header)
	}

	return header, columns
}

// questionColumns берёт вопросы опроса, а если их нет, собирает id из ответов.
func (t Table) questionColumns() []column {
	if len(t.Questions) > 0 {
		columns := make([]column, 0, len(t.Questions))
		for _, q := range t.Questions {
			columns = append(columns, column{
				questionID: q.ID,
				header:     q.QuestionText,
				rating:     q.QuestionType == models.QuestionRating,
			})
		}

		return columns
	}

	seen := make(map[int]struct{})
	var ids []int

	for _, r := range t.Responses {
		for _, a := range r.Answers {
			if _, ok := seen[a.QuestionID]; !ok {
				seen[a.QuestionID] = struct{}{}
				ids = append(ids, a.QuestionID)
			}
		}
	}

	sort.Ints(ids)

	columns := make([]column, 0, len(ids))
	for _, id := range ids {
		columns = append(columns, column{questionID: id, header: "Question " + strconv.Itoa(id)})
	}

	return columns
}

// records возвращает строки таблицы в текстовом виде.
func (t Table) records() [][]string {
	header, columns := t.header()

	records := make([][]string, 0, len(t.Responses)+1)
	records = append(records, header)

	for _, r := range t.Responses {
		answers := make(map[int]models.Answer, len(r.Answers))
		for _, a := range r.Answers {
			answers[a.QuestionID] = a
		}

		record := []string{
			strconv.Itoa(r.ID),
			r.DisplayUsername(),
			formatTime(r.SubmittedAt.Time),
			strconv.FormatBool(r.ConsentGiven),
		}

		for _, c := range columns {
			record = append(record, answerText(answers[c.questionID], c.rating))
		}

		records = append(records, record)
	}

	return records
}

func answerText(a models.Answer, rating bool) string {
	switch {
	case rating && a.RatingValue != nil:
		return strconv.Itoa(*a.RatingValue)
	case a.AnswerText != nil:
		return *a.AnswerText
	case a.RatingValue != nil:
		return strconv.Itoa(*a.RatingValue)
	default:
		return ""
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(timeLayout)
}

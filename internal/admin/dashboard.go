package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/letsssgooo/surveySite/internal/client"
	"github.com/letsssgooo/surveySite/internal/domain/models"
	"github.com/letsssgooo/surveySite/internal/export"
	"github.com/letsssgooo/surveySite/internal/share"
)

// Dashboard — панель администратора: опросы, ответы, статистика,
// фильтры, удаление с подтверждением, выгрузки и общие ссылки.
type Dashboard struct {
	api       API
	session   Session
	origin    string
	exportDir string

	mu        sync.Mutex
	surveys   []models.Survey
	selected  *models.Survey
	responses []models.Response
	rows      []models.Response
	analytics *models.Analytics
	startDate string
	endDate   string
	search    string
	pending   *Pending
	message   string
}

// NewDashboard создаёт панель. origin — адрес сайта для общих ссылок,
// exportDir — каталог для выгрузок.
func NewDashboard(api API, session Session, origin, exportDir string) *Dashboard {
	return &Dashboard{
		api:       api,
		session:   session,
		origin:    origin,
		exportDir: exportDir,
	}
}

// Load проверяет роль и загружает все опросы.
func (d *Dashboard) Load(ctx context.Context) error {
	if err := d.requireAdmin(ctx); err != nil {
		return err
	}

	surveys, err := d.api.ListSurveys(ctx)
	if err != nil {
		return d.apiFailed(ctx, err, "failed to list surveys")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.surveys = surveys
	d.message = ""

	return nil
}

// Select выбирает опрос и параллельно загружает ответы и статистику.
// Статистика необязательна: при ошибке она просто пустая.
func (d *Dashboard) Select(ctx context.Context, surveyID int) error {
	if err := d.requireAdmin(ctx); err != nil {
		return err
	}

	d.mu.Lock()
	idx := slices.IndexFunc(d.surveys, func(s models.Survey) bool { return s.ID == surveyID })
	var selected *models.Survey
	if idx >= 0 {
		s := d.surveys[idx]
		selected = &s
	}
	d.mu.Unlock()

	if selected == nil {
		survey, err := d.api.GetSurvey(ctx, surveyID, "")
		if err != nil {
			if errors.Is(err, client.ErrNotFound) {
				return fmt.Errorf("%w: %d", ErrUnknownSurvey, surveyID)
			}

			return d.apiFailed(ctx, err, "failed to load survey")
		}
		selected = survey
	}

	var (
		responses []models.Response
		analytics *models.Analytics
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		responses, err = d.api.ListResponses(gctx, surveyID)

		return err
	})

	g.Go(func() error {
		a, err := d.api.Analytics(gctx, surveyID)
		if err != nil {
			slog.Warn("analytics unavailable", "survey_id", surveyID, "error", err)
			return nil
		}
		analytics = a

		return nil
	})

	if err := g.Wait(); err != nil {
		d.mu.Lock()
		d.message = MsgResponsesFailed
		d.mu.Unlock()

		return d.apiFailed(ctx, err, "failed to load responses")
	}

	if responses == nil {
		responses = []models.Response{}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.selected = selected
	d.responses = responses
	d.rows = slices.Clone(responses)
	d.analytics = analytics
	d.startDate, d.endDate, d.search = "", "", ""
	d.pending = nil
	d.message = ""

	slog.Debug("survey selected", "survey_id", surveyID, "responses", len(responses))

	return nil
}

// FilterByDate оставляет ответы, отправленные с start по end включительно
// (весь день end). Обе даты обязательны, формат YYYY-MM-DD.
func (d *Dashboard) FilterByDate(start, end string) error {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.selected == nil {
		return ErrNoSelection
	}

	if start == "" || end == "" {
		d.message = MsgSelectDates
		return fmt.Errorf("%w, %s", ErrValidation, MsgSelectDates)
	}

	from, err := time.ParseInLocation(DateLayout, start, time.UTC)
	if err != nil {
		return fmt.Errorf("%w, invalid start date %q", ErrValidation, start)
	}

	to, err := time.ParseInLocation(DateLayout, end, time.UTC)
	if err != nil {
		return fmt.Errorf("%w, invalid end date %q", ErrValidation, end)
	}

	if to.Before(from) {
		return fmt.Errorf("%w, end date is before start date", ErrValidation)
	}

	until := to.AddDate(0, 0, 1)

	rows := make([]models.Response, 0, len(d.responses))
	for _, r := range d.responses {
		at := r.SubmittedAt.Time
		if !at.Before(from) && at.Before(until) {
			rows = append(rows, r)
		}
	}

	d.rows = rows
	d.startDate, d.endDate = start, end
	d.message = ""

	return nil
}

// Reset возвращает все ответы и очищает даты фильтра.
func (d *Dashboard) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.rows = slices.Clone(d.responses)
	d.startDate, d.endDate = "", ""
	d.message = ""
}

// Search оставляет ответы, в имени автора которых есть text (без учёта регистра).
// Пустой text возвращает все ответы.
func (d *Dashboard) Search(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.search = text

	needle := strings.TrimSpace(text)
	if needle == "" {
		d.rows = slices.Clone(d.responses)
		return
	}

	fold := cases.Fold()
	needle = fold.String(needle)

	rows := make([]models.Response, 0, len(d.responses))
	for _, r := range d.responses {
		if strings.Contains(fold.String(r.DisplayUsername()), needle) {
			rows = append(rows, r)
		}
	}

	d.rows = rows
}

// RequestDeleteResponse запоминает удаление ответа до подтверждения.
func (d *Dashboard) RequestDeleteResponse(id int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !slices.ContainsFunc(d.responses, func(r models.Response) bool { return r.ID == id }) {
		return fmt.Errorf("%w: %d", ErrUnknownRow, id)
	}

	d.pending = &Pending{Kind: PendingResponse, ID: id}

	return nil
}

// RequestDeleteSurvey запоминает удаление опроса до подтверждения.
func (d *Dashboard) RequestDeleteSurvey(id int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !slices.ContainsFunc(d.surveys, func(s models.Survey) bool { return s.ID == id }) {
		return fmt.Errorf("%w: %d", ErrUnknownSurvey, id)
	}

	d.pending = &Pending{Kind: PendingSurvey, ID: id}

	return nil
}

// Cancel отменяет ожидающее удаление.
func (d *Dashboard) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = nil
}

// Confirm выполняет ожидающее удаление.
func (d *Dashboard) Confirm(ctx context.Context) error {
	d.mu.Lock()
	pending := d.pending
	d.pending = nil
	d.mu.Unlock()

	if pending == nil {
		return ErrNoPending
	}

	switch pending.Kind {
	case PendingResponse:
		if err := d.api.DeleteResponse(ctx, pending.ID); err != nil {
			return d.apiFailed(ctx, err, "failed to delete response")
		}

		d.mu.Lock()
		defer d.mu.Unlock()

		isDeleted := func(r models.Response) bool { return r.ID == pending.ID }
		d.responses = slices.DeleteFunc(d.responses, isDeleted)
		d.rows = slices.DeleteFunc(d.rows, isDeleted)
		d.message = MsgDeleted

	case PendingSurvey:
		if err := d.api.DeleteSurvey(ctx, pending.ID); err != nil {
			return d.apiFailed(ctx, err, "failed to delete survey")
		}

		d.mu.Lock()
		defer d.mu.Unlock()

		d.surveys = slices.DeleteFunc(d.surveys, func(s models.Survey) bool { return s.ID == pending.ID })
		d.selected = nil
		d.responses, d.rows, d.analytics = nil, nil, nil
		d.startDate, d.endDate, d.search = "", "", ""
		d.message = MsgDeleted
	}

	slog.Info("deleted", "kind", pending.Kind, "id", pending.ID)

	return nil
}

// AddQuestion добавляет вопрос в существующий опрос.
func (d *Dashboard) AddQuestion(ctx context.Context, surveyID int, q models.QuestionDraft) (*models.Question, error) {
	if err := validateQuestion(q); err != nil {
		return nil, err
	}

	question, err := d.api.AddQuestion(ctx, surveyID, q)
	if err != nil {
		return nil, d.apiFailed(ctx, err, "failed to create question")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.selected != nil && d.selected.ID == surveyID {
		d.selected.Questions = append(d.selected.Questions, *question)
	}

	return question, nil
}

// Export выгружает текущие (отфильтрованные) строки в файл.
func (d *Dashboard) Export(format export.Format) (string, error) {
	d.mu.Lock()
	if d.selected == nil {
		d.mu.Unlock()
		return "", ErrNoSelection
	}

	table := export.Table{
		Title:     d.selected.Title,
		Questions: slices.Clone(d.selected.Questions),
		Responses: slices.Clone(d.rows),
	}
	d.mu.Unlock()

	if len(table.Responses) == 0 {
		d.setMessage(MsgNoData)
		return "", export.ErrNoData
	}

	path, err := export.SaveFile(d.exportDir, export.FileName(table.Title, format), func(w io.Writer) error {
		return export.Write(w, format, table)
	})
	if err != nil {
		return "", err
	}

	slog.Info("responses exported", "format", format, "rows", len(table.Responses), "path", path)

	return path, nil
}

// ShareLink возвращает ссылку на опрос, создавая ключ только при первом вызове.
func (d *Dashboard) ShareLink(ctx context.Context, surveyID int) (string, error) {
	token, ok, err := d.session.ShareToken(ctx, surveyID)
	if err != nil {
		return "", err
	}

	if !ok {
		token = share.Mint(surveyID)
		if err = d.session.SaveShareToken(ctx, surveyID, token); err != nil {
			return "", err
		}
	}

	return share.Link(d.origin, surveyID, token), nil
}

// QR — QR код общей ссылки.
type QR struct {
	Link     string
	ImageURL string
	Path     string
}

// QRCode сохраняет PNG с QR кодом ссылки на опрос и возвращает адрес
// той же картинки во внешнем сервисе.
func (d *Dashboard) QRCode(ctx context.Context, surveyID int) (*QR, error) {
	link, err := d.ShareLink(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	png, err := share.QRCode(link)
	if err != nil {
		return nil, err
	}

	name := "survey_" + strconv.Itoa(surveyID) + "_qr.png"

	path, err := export.SaveFile(d.exportDir, name, func(w io.Writer) error {
		_, err := w.Write(png)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &QR{Link: link, ImageURL: share.QRImageURL(link), Path: path}, nil
}

// View возвращает снимок панели.
func (d *Dashboard) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()

	view := View{
		Surveys:    slices.Clone(d.surveys),
		Rows:       slices.Clone(d.rows),
		Total:      len(d.responses),
		StartDate:  d.startDate,
		EndDate:    d.endDate,
		SearchText: d.search,
		Message:    d.message,
	}

	if d.selected != nil {
		s := *d.selected
		s.Questions = slices.Clone(d.selected.Questions)
		view.Selected = &s
	}

	if d.analytics != nil {
		a := *d.analytics
		view.Analytics = &a
	}

	if d.pending != nil {
		p := *d.pending
		view.Pending = &p
	}

	return view
}

func (d *Dashboard) setMessage(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.message = msg
}

func (d *Dashboard) requireAdmin(ctx context.Context) error {
	identity, err := d.session.Identity(ctx)
	if err != nil {
		return err
	}

	if !identity.Authenticated() || !identity.IsAdmin() {
		return ErrAdminRequired
	}

	return nil
}

// apiFailed разлогинивает при 401, остальные ошибки оборачивает.
func (d *Dashboard) apiFailed(ctx context.Context, err error, action string) error {
	if errors.Is(err, client.ErrUnauthorized) {
		if signOutErr := d.session.SignOut(ctx); signOutErr != nil {
			slog.Warn("failed to sign out", "error", signOutErr)
		}

		d.setMessage(MsgSessionExpired)

		return fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}

	return fmt.Errorf("%s: %w", action, err)
}

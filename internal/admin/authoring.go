package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/letsssgooo/surveySite/internal/client"
	"github.com/letsssgooo/surveySite/internal/domain/models"
)

// Draft — опрос, который создаётся или редактируется администратором.
// У нового черновика editID равен нулю.
type Draft struct {
	dashboard *Dashboard
	editID    int

	mu          sync.Mutex
	title       string
	description string
	questions   []models.QuestionDraft
	message     string
}

// DraftView — снимок черновика.
type DraftView struct {
	EditID      int
	Title       string
	Description string
	Questions   []models.QuestionDraft
	Message     string
}

// NewDraft начинает новый опрос.
func (d *Dashboard) NewDraft() *Draft {
	return &Draft{dashboard: d}
}

// EditDraft загружает существующий опрос для правки.
// Вопросы при правке не меняются и отправляются обратно как есть.
func (d *Dashboard) EditDraft(ctx context.Context, surveyID int) (*Draft, error) {
	if err := d.requireAdmin(ctx); err != nil {
		return nil, err
	}

	survey, err := d.api.GetSurvey(ctx, surveyID, "")
	if err != nil {
		d.setMessage(MsgSurveyLoadFailed)
		return nil, d.apiFailed(ctx, err, "failed to load survey")
	}

	draft := &Draft{
		dashboard:   d,
		editID:      survey.ID,
		title:       survey.Title,
		description: survey.Description,
		questions:   make([]models.QuestionDraft, 0, len(survey.Questions)),
	}

	for _, q := range survey.Questions {
		draft.questions = append(draft.questions, models.DraftFromQuestion(q))
	}

	return draft, nil
}

// SetTitle задаёт название.
func (dr *Draft) SetTitle(title string) {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	dr.title = title
}

// SetDescription задаёт описание.
func (dr *Draft) SetDescription(description string) {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	dr.description = description
}

// AddQuestion добавляет вопрос в черновик нового опроса.
func (dr *Draft) AddQuestion(q models.QuestionDraft) error {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	if dr.editID != 0 {
		return fmt.Errorf("%w, questions of a saved survey are read-only", ErrValidation)
	}

	if err := validateQuestion(q); err != nil {
		dr.message = MsgQuestionRequired
		return err
	}

	dr.questions = append(dr.questions, normalizeQuestion(q))
	dr.message = ""

	return nil
}

// RemoveQuestion удаляет вопрос по индексу (с нуля).
func (dr *Draft) RemoveQuestion(index int) error {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	if dr.editID != 0 {
		return fmt.Errorf("%w, questions of a saved survey are read-only", ErrValidation)
	}

	if index < 0 || index >= len(dr.questions) {
		return fmt.Errorf("%w, no question #%d", ErrValidation, index+1)
	}

	dr.questions = slices.Delete(dr.questions, index, index+1)

	return nil
}

// Save создаёт опрос или сохраняет правку. Для нового опроса нужны
// название и хотя бы один вопрос, для правки только название.
// Возвращает id сохранённого опроса.
func (dr *Draft) Save(ctx context.Context) (int, error) {
	dr.mu.Lock()
	draft := models.SurveyDraft{
		Title:       dr.title,
		Description: dr.description,
		Questions:   slices.Clone(dr.questions),
	}
	editID := dr.editID
	dr.mu.Unlock()

	if draft.Questions == nil {
		draft.Questions = []models.QuestionDraft{}
	}

	d := dr.dashboard

	if editID != 0 {
		if strings.TrimSpace(draft.Title) == "" {
			dr.setMessage(MsgTitleRequired)
			return 0, fmt.Errorf("%w, %s", ErrValidation, MsgTitleRequired)
		}

		if err := d.api.UpdateSurvey(ctx, editID, draft); err != nil {
			dr.setMessage(saveFailedMessage(err))
			return 0, d.apiFailed(ctx, err, "failed to update survey")
		}

		dr.setMessage(MsgSurveyUpdated)
		slog.Info("survey updated", "survey_id", editID)

		return editID, nil
	}

	if strings.TrimSpace(draft.Title) == "" || len(draft.Questions) == 0 {
		dr.setMessage(MsgDraftIncomplete)
		return 0, fmt.Errorf("%w, %s", ErrValidation, MsgDraftIncomplete)
	}

	identity, err := d.session.Identity(ctx)
	if err != nil {
		return 0, err
	}
	draft.CreatedBy = identity.Username

	survey, err := d.api.CreateSurvey(ctx, draft)
	if err != nil {
		dr.setMessage(saveFailedMessage(err))
		return 0, d.apiFailed(ctx, err, "failed to create survey")
	}

	dr.mu.Lock()
	dr.title, dr.description, dr.questions = "", "", nil
	dr.message = MsgSurveyCreated
	dr.mu.Unlock()

	slog.Info("survey created", "survey_id", survey.ID, "questions", len(draft.Questions))

	return survey.ID, nil
}

// View возвращает снимок черновика.
func (dr *Draft) View() DraftView {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	return DraftView{
		EditID:      dr.editID,
		Title:       dr.title,
		Description: dr.description,
		Questions:   slices.Clone(dr.questions),
		Message:     dr.message,
	}
}

func (dr *Draft) setMessage(msg string) {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	dr.message = msg
}

func validateQuestion(q models.QuestionDraft) error {
	if strings.TrimSpace(q.QuestionText) == "" {
		return fmt.Errorf("%w, %s", ErrValidation, MsgQuestionRequired)
	}

	switch q.QuestionType {
	case models.QuestionText, models.QuestionRating, models.QuestionMultipleChoice:
	default:
		return fmt.Errorf("%w, unknown question type %q", ErrValidation, q.QuestionType)
	}

	if q.QuestionType == models.QuestionMultipleChoice && (q.Options == nil || strings.TrimSpace(*q.Options) == "") {
		return fmt.Errorf("%w, multiple choice question needs options", ErrValidation)
	}

	return nil
}

// normalizeQuestion обрезает текст и убирает варианты у вопросов не MultipleChoice.
func normalizeQuestion(q models.QuestionDraft) models.QuestionDraft {
	q.QuestionText = strings.TrimSpace(q.QuestionText)

	if q.QuestionType != models.QuestionMultipleChoice {
		q.Options = nil
	}

	return q
}

func saveFailedMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}

	return "Error creating survey."
}

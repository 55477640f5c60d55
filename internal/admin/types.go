package admin

import (
	"context"
	"errors"

	"github.com/letsssgooo/surveySite/internal/domain/models"
)

// Сообщения панели администратора.
const (
	MsgSelectDates      = "Select start and end dates"
	MsgNoData           = "No data to export."
	MsgDeleted          = "Deleted successfully!"
	MsgSessionExpired   = "Session expired. Please log in again."
	MsgResponsesFailed  = "Failed to load responses"
	MsgQuestionRequired = "Please enter a question text."
	MsgDraftIncomplete  = "Please add a title and at least one question."
	MsgTitleRequired    = "Please add a title."
	MsgSurveyCreated    = "Survey created successfully!"
	MsgSurveyUpdated    = "Survey Updated Successfully!"
	MsgSurveyLoadFailed = "Error loading survey."
)

// Формат дат фильтра.
const DateLayout = "2006-01-02"

// Ошибки
var (
	ErrAdminRequired  = errors.New("admin role required")
	ErrSessionExpired = errors.New("session expired")
	ErrValidation     = errors.New("validation error")
	ErrNoSelection    = errors.New("no survey selected")
	ErrNoPending      = errors.New("nothing to confirm")
	ErrUnknownSurvey  = errors.New("unknown survey")
	ErrUnknownRow     = errors.New("unknown response")
)

// API — запросы панели администратора.
type API interface {
	ListSurveys(ctx context.Context) ([]models.Survey, error)
	GetSurvey(ctx context.Context, id int, shareKey string) (*models.Survey, error)
	CreateSurvey(ctx context.Context, draft models.SurveyDraft) (*models.Survey, error)
	UpdateSurvey(ctx context.Context, id int, draft models.SurveyDraft) error
	DeleteSurvey(ctx context.Context, id int) error
	AddQuestion(ctx context.Context, surveyID int, q models.QuestionDraft) (*models.Question, error)
	ListResponses(ctx context.Context, surveyID int) ([]models.Response, error)
	DeleteResponse(ctx context.Context, id int) error
	Analytics(ctx context.Context, surveyID int) (*models.Analytics, error)
}

// Session — то, что панель читает и пишет в состоянии клиента.
type Session interface {
	Identity(ctx context.Context) (models.Identity, error)
	SignOut(ctx context.Context) error
	ShareToken(ctx context.Context, surveyID int) (string, bool, error)
	SaveShareToken(ctx context.Context, surveyID int, token string) error
}

// PendingKind — что ждёт подтверждения удаления.
type PendingKind string

const (
	PendingResponse PendingKind = "response"
	PendingSurvey   PendingKind = "survey"
)

// Pending — удаление, ожидающее подтверждения.
type Pending struct {
	Kind PendingKind
	ID   int
}

// View — снимок панели для отрисовки.
type View struct {
	Surveys    []models.Survey
	Selected   *models.Survey
	Rows       []models.Response
	Total      int
	Analytics  *models.Analytics
	StartDate  string
	EndDate    string
	SearchText string
	Pending    *Pending
	Message    string
}

package survey

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/letsssgooo/surveySite/internal/completion"
	"github.com/letsssgooo/surveySite/internal/domain/models"
)

// State — состояние прохождения опроса.
type State string

const (
	StateLoading     State = "loading"
	StateError       State = "error"
	StateNoQuestions State = "no-questions"
	StateAnswering   State = "answering"
	StateSubmitting  State = "submitting"
	StateSubmitted   State = "submitted"
	StateReview      State = "review"
)

// Сообщения пользователю.
const (
	MsgFetchFailed      = "Error fetching survey. Please try again later."
	MsgAccessDenied     = "Access denied. This survey is not public and requires a valid share link."
	MsgInvalidShareLink = "Invalid share link."
	MsgSessionExpired   = "Your session has expired. Please log in again."
	MsgRequired         = "Please answer all required questions (highlighted in red)."
	MsgConsent          = "You must give consent to submit this survey."
	MsgSubmitFailed     = "Failed to submit survey. Please try again later."
)

// Ошибки
var (
	ErrNotAnswering    = errors.New("survey is not accepting answers")
	ErrNotInReview     = errors.New("survey is not in review mode")
	ErrSubmitInFlight  = errors.New("submission already in progress")
	ErrUnknownQuestion = errors.New("unknown question")
	ErrInvalidAnswer   = errors.New("invalid answer")
	ErrValidation      = errors.New("validation error")
	ErrRequired        = errors.New("required questions are unanswered")
	ErrConsent         = errors.New("consent is required")
)

// Маршруты, на которые уводят операции.
const (
	RouteSurveys = "/surveys"
	RouteLogin   = "/login"
)

// SurveyRoute возвращает адрес страницы опроса, с ключом ссылки, если он есть.
func SurveyRoute(surveyID int, shareToken string) string {
	route := "/survey/" + strconv.Itoa(surveyID)
	if shareToken == "" {
		return route
	}

	return route + "?share=" + url.QueryEscape(shareToken)
}

// API — запросы, которые нужны для прохождения опроса.
type API interface {
	GetSurvey(ctx context.Context, id int, shareKey string) (*models.Survey, error)
	SubmitResponse(ctx context.Context, surveyID int, resp models.SurveyResponse, shareKey string) error
	ListResponses(ctx context.Context, surveyID int) ([]models.Response, error)
}

// Session — состояние клиента, которое читает и меняет прохождение опроса.
type Session interface {
	Identity(ctx context.Context) (models.Identity, error)
	SignOut(ctx context.Context) error
	MarkCompleted(ctx context.Context, surveyID int, username string) error
	ClearCompleted(ctx context.Context, surveyID int, username string) error
	SetSkipReview(ctx context.Context, surveyID int) error
	ConsumeSkipReview(ctx context.Context, surveyID int) (bool, error)
	ActiveShare(ctx context.Context) (*models.ShareSession, error)
	SetActiveShare(ctx context.Context, share models.ShareSession) error
	ClearActiveShare(ctx context.Context) error
}

// CompletionResolver определяет, проходил ли пользователь опрос.
type CompletionResolver interface {
	Resolve(ctx context.Context, surveyID int, identity models.Identity) (completion.Result, error)
}

// LoadRequest — параметры маршрута /survey/{id}?review=true&share=<token>.
type LoadRequest struct {
	SurveyID   int
	Review     bool
	ShareToken string
}

// Value — ответ на один вопрос до отправки.
type Value struct {
	Text   string
	Rating *int
}

// Display возвращает ответ в виде строки.
func (v Value) Display() string {
	if v.Rating != nil {
		return strconv.Itoa(*v.Rating)
	}

	return v.Text
}

// View — снимок состояния для отрисовки. Изменение снимка не влияет на Taker.
type View struct {
	State    State
	SurveyID int
	Survey   *models.Survey

	// Questions — видимые вопросы (без вопросов о согласии).
	Questions []models.Question
	Answers   map[int]Value
	Invalid   []int
	Consent   bool

	// ReviewAnswers — ранее отправленные ответы в режиме просмотра.
	ReviewAnswers map[int]string

	// Progress — доля отвеченных видимых вопросов в процентах.
	Progress int
	Message  string

	Shared     bool
	ShareToken string

	// Redirect — куда перейти после последней операции.
	Redirect string
}

// IsInvalid сообщает, подсвечен ли вопрос как неотвеченный.
func (v View) IsInvalid(questionID int) bool {
	for _, id := range v.Invalid {
		if id == questionID {
			return true
		}
	}

	return false
}

// problems — причины, по которым отправка не удалась.
type problems struct {
	required bool
	consent  bool
	server   string
}

func (p problems) message() string {
	var parts []string

	if p.server != "" {
		parts = append(parts, p.server)
	}

	if p.required {
		parts = append(parts, MsgRequired)
	}

	if p.consent {
		parts = append(parts, MsgConsent)
	}

	return strings.Join(parts, " ")
}

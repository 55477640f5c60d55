package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/letsssgooo/surveySite/internal/domain/models"
)

// DefaultBaseURL — адрес API по умолчанию.
const DefaultBaseURL = "https://localhost:7126"

// ShareKeyHeader — заголовок, в котором API ожидает ключ общей ссылки.
const ShareKeyHeader = "X-Share-Key"

// Таймауты
const (
	timeoutRequest = 10 * time.Second
)

// Credentials — тело запроса на вход.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult — ответ API на успешный вход.
type LoginResult struct {
	Token    string      `json:"token"`
	Role     models.Role `json:"role"`
	Username string      `json:"username"`
}

// RegisterRequest — тело запроса на регистрацию.
type RegisterRequest struct {
	FirstName       string      `json:"FirstName"`
	MiddleName      *string     `json:"MiddleName"`
	LastName        string      `json:"LastName"`
	DateOfBirth     string      `json:"DateOfBirth"`
	Email           string      `json:"Email"`
	PhoneNumber     *string     `json:"PhoneNumber"`
	Username        string      `json:"Username"`
	Password        string      `json:"Password"`
	ConfirmPassword string      `json:"ConfirmPassword"`
	Role            models.Role `json:"Role"`
}

// TokenSource отдаёт текущий bearer токен. Пустая строка — без авторизации.
type TokenSource interface {
	Token(ctx context.Context) string
}

// TokenFunc позволяет использовать функцию как TokenSource.
type TokenFunc func(ctx context.Context) string

// Token реализует TokenSource.
func (f TokenFunc) Token(ctx context.Context) string {
	return f(ctx)
}

// Client определяет интерфейс клиента REST API опросов.
type Client interface {
	// Login обменивает логин и пароль на токен.
	Login(ctx context.Context, creds Credentials) (*LoginResult, error)

	// Register регистрирует нового пользователя.
	Register(ctx context.Context, req RegisterRequest) error

	// ListSurveys возвращает все опросы.
	ListSurveys(ctx context.Context) ([]models.Survey, error)

	// GetSurvey возвращает опрос. shareKey может быть пустым.
	GetSurvey(ctx context.Context, id int, shareKey string) (*models.Survey, error)

	// CreateSurvey создаёт опрос вместе с вопросами.
	CreateSurvey(ctx context.Context, draft models.SurveyDraft) (*models.Survey, error)

	// UpdateSurvey сохраняет изменения опроса.
	UpdateSurvey(ctx context.Context, id int, draft models.SurveyDraft) error

	// DeleteSurvey удаляет опрос.
	DeleteSurvey(ctx context.Context, id int) error

	// AddQuestion добавляет вопрос в существующий опрос.
	AddQuestion(ctx context.Context, surveyID int, q models.QuestionDraft) (*models.Question, error)

	// ListResponses возвращает все ответы на опрос.
	ListResponses(ctx context.Context, surveyID int) ([]models.Response, error)

	// SubmitResponse отправляет ответы пользователя. shareKey может быть пустым.
	SubmitResponse(ctx context.Context, surveyID int, resp models.SurveyResponse, shareKey string) error

	// MyAnswers возвращает ответы текущего пользователя на опрос.
	MyAnswers(ctx context.Context, surveyID int) ([]models.Answer, error)

	// CompletedSurveys возвращает идентификаторы опросов, пройденных текущим пользователем.
	CompletedSurveys(ctx context.Context) ([]int, error)

	// DeleteResponse удаляет один ответ.
	DeleteResponse(ctx context.Context, id int) error

	// Analytics возвращает агрегированную статистику опроса.
	Analytics(ctx context.Context, surveyID int) (*models.Analytics, error)
}

// Ошибки API
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// APIError — ответ API с кодом не из диапазона 2xx.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Status, e.Message)
	}

	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// Unwrap позволяет проверять ошибку через errors.Is(err, ErrUnauthorized) и т.д.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// ServerMessage возвращает текст ошибки, присланный сервером, если он есть.
func ServerMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}

	return ""
}

// IsTransport сообщает, что до сервера не удалось достучаться
// (а не что сервер ответил ошибкой).
func IsTransport(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError

	return !errors.As(err, &apiErr)
}

package models

import (
	"strings"
	"time"
)

// Файл с моделями, которыми клиент обменивается с API опросов.
// Источник истины для всех сущностей — удалённый API, клиент их только
// читает, отображает и отправляет обратно.

// Role определяет роль пользователя.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// QuestionType определяет тип вопроса.
type QuestionType string

const (
	QuestionText           QuestionType = "Text"
	QuestionRating         QuestionType = "Rating"
	QuestionMultipleChoice QuestionType = "MultipleChoice"
)

// Границы шкалы для вопросов типа Rating.
const (
	RatingMin = 1
	RatingMax = 10
)

// AnonymousUsername используется, когда пользователь не вошёл в систему.
const AnonymousUsername = "Anonymous"

// Identity — данные вошедшего пользователя.
type Identity struct {
	Username string
	Role     Role
	Token    string
}

// Authenticated сообщает, есть ли у пользователя токен.
func (i Identity) Authenticated() bool {
	return i.Token != ""
}

// IsAdmin сообщает, является ли пользователь администратором.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// DisplayName возвращает имя пользователя или Anonymous.
func (i Identity) DisplayName() string {
	if i.Username == "" {
		return AnonymousUsername
	}

	return i.Username
}

// Survey представляет опрос.
type Survey struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CreatedBy   string     `json:"createdBy,omitempty"`
	Questions   []Question `json:"questions"`
}

// Question представляет вопрос опроса.
type Question struct {
	ID                int          `json:"id"`
	QuestionText      string       `json:"questionText"`
	QuestionType      QuestionType `json:"questionType"`
	Options           string       `json:"options,omitempty"`
	IsRequired        bool         `json:"isRequired"`
	IsConsentQuestion bool         `json:"isConsentQuestion,omitempty"`
}

// Choices возвращает варианты ответа для MultipleChoice.
// Для остальных типов вопросов всегда nil.
func (q Question) Choices() []string {
	if q.QuestionType != QuestionMultipleChoice || q.Options == "" {
		return nil
	}

	parts := strings.Split(q.Options, ",")
	choices := make([]string, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		choices = append(choices, part)
	}

	return choices
}

// Answer — ответ на один вопрос.
// В зависимости от типа вопроса заполнено либо AnswerText, либо RatingValue.
type Answer struct {
	QuestionID  int     `json:"questionId"`
	AnswerText  *string `json:"answerText"`
	RatingValue *int    `json:"ratingValue"`
}

// SurveyResponse — набор ответов, отправляемый за одну попытку.
type SurveyResponse struct {
	Username     string   `json:"username"`
	Answers      []Answer `json:"answers"`
	ConsentGiven bool     `json:"consentGiven"`
}

// Response — сохранённый ответ, как его видит администратор.
type Response struct {
	ID           int       `json:"id"`
	SurveyID     int       `json:"surveyId,omitempty"`
	Username     string    `json:"username"`
	SubmittedAt  Timestamp `json:"submittedAt"`
	ConsentGiven bool      `json:"consentGiven"`
	Answers      []Answer  `json:"answers,omitempty"`
}

// DisplayUsername возвращает имя автора ответа или Anonymous.
func (r Response) DisplayUsername() string {
	if r.Username == "" {
		return AnonymousUsername
	}

	return r.Username
}

// Analytics — агрегированная статистика опроса.
type Analytics struct {
	TotalResponses int     `json:"totalResponses"`
	AverageRating  float64 `json:"averageRating"`
	HighestRating  float64 `json:"highestRating"`
	LowestRating   float64 `json:"lowestRating"`
}

// ShareSession — активный контекст перехода по общей ссылке.
type ShareSession struct {
	SurveyID int    `json:"id"`
	Share    string `json:"share"`
}

// SurveyDraft — тело запроса на создание или изменение опроса.
type SurveyDraft struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	CreatedBy   string          `json:"createdBy,omitempty"`
	Questions   []QuestionDraft `json:"questions"`
}

// QuestionDraft — вопрос, который ещё не сохранён на сервере.
type QuestionDraft struct {
	ID           int          `json:"id,omitempty"`
	QuestionText string       `json:"questionText"`
	QuestionType QuestionType `json:"questionType"`
	Options      *string      `json:"options"`
	IsRequired   bool         `json:"isRequired"`
}

// DraftFromQuestion превращает сохранённый вопрос обратно в черновик.
func DraftFromQuestion(q Question) QuestionDraft {
	draft := QuestionDraft{
		ID:           q.ID,
		QuestionText: q.QuestionText,
		QuestionType: q.QuestionType,
		IsRequired:   q.IsRequired,
	}

	if q.Options != "" {
		options := q.Options
		draft.Options = &options
	}

	return draft
}

// Timestamp разбирает время как в RFC 3339, так и без часового пояса,
// как его отдаёт API. Время без пояса считается UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// UnmarshalJSON реализует json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		t.Time = time.Time{}
		return nil
	}

	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			t.Time = parsed.UTC()
			return nil
		}

		lastErr = err
	}

	return lastErr
}

// MarshalJSON реализует json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}

	return []byte(`"` + t.UTC().Format(time.RFC3339) + `"`), nil
}

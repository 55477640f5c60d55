package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/letsssgooo/surveySite/internal/client"
	"github.com/letsssgooo/surveySite/internal/completion"
	"github.com/letsssgooo/surveySite/internal/domain/models"
	"github.com/letsssgooo/surveySite/internal/survey"
)

// Сообщения списка опросов.
const (
	MsgLoginRequired = "Please log in or register to see available surveys."
	MsgNoSurveys     = "No surveys available."
	MsgLoadFailed    = "Failed to load surveys. Please try again later."
)

// Надписи кнопок.
const (
	ActionView   = "View"
	ActionAnswer = "Answer"
)

// ErrLoginRequired возвращается, если список открывает гость.
var ErrLoginRequired = errors.New("login required")

// API — запросы списка опросов.
type API interface {
	ListSurveys(ctx context.Context) ([]models.Survey, error)
}

// Session — то, что список читает из состояния клиента.
type Session interface {
	Identity(ctx context.Context) (models.Identity, error)
	SignOut(ctx context.Context) error
}

// BulkResolver определяет прохождение сразу нескольких опросов.
type BulkResolver interface {
	ResolveAll(ctx context.Context, surveyIDs []int, identity models.Identity) (map[int]completion.Status, error)
}

// Entry — одна строка списка.
type Entry struct {
	Survey models.Survey
	Status completion.Status
	Action string
	Link   string
}

// Badge возвращает отметку о прохождении для показа.
func (e Entry) Badge() string {
	switch e.Status {
	case completion.Completed:
		return "Completed"
	case completion.NotCompleted:
		return "Not Completed"
	default:
		return "Unknown"
	}
}

// Catalog — страница со списком опросов.
type Catalog struct {
	api      API
	session  Session
	resolver BulkResolver
}

// New создаёт Catalog.
func New(api API, session Session, resolver BulkResolver) *Catalog {
	return &Catalog{api: api, session: session, resolver: resolver}
}

// Load возвращает опросы с отметками о прохождении.
// Гостю возвращается ErrLoginRequired.
func (c *Catalog) Load(ctx context.Context) ([]Entry, error) {
	identity, err := c.session.Identity(ctx)
	if err != nil {
		return nil, err
	}

	if !identity.Authenticated() {
		return nil, ErrLoginRequired
	}

	surveys, err := c.api.ListSurveys(ctx)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			if signOutErr := c.session.SignOut(ctx); signOutErr != nil {
				slog.Warn("failed to sign out", "error", signOutErr)
			}

			return nil, fmt.Errorf("%w: %w", ErrLoginRequired, err)
		}

		return nil, fmt.Errorf("failed to list surveys: %w", err)
	}

	ids := make([]int, 0, len(surveys))
	for _, s := range surveys {
		ids = append(ids, s.ID)
	}

	statuses, err := c.resolver.ResolveAll(ctx, ids, identity)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(surveys))
	for _, s := range surveys {
		entry := Entry{
			Survey: s,
			Status: statuses[s.ID],
			Action: ActionAnswer,
			Link:   survey.SurveyRoute(s.ID, ""),
		}

		if entry.Status == completion.Completed {
			entry.Action = ActionView
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/letsssgooo/surveySite/internal/client"
	"github.com/letsssgooo/surveySite/internal/domain/models"
)

// Status — результат проверки прохождения опроса.
type Status int

const (
	// Unknown — сервер недоступен, а локальной отметки нет.
	Unknown Status = iota
	NotCompleted
	Completed
)

func (s Status) String() string {
	switch s {
	case Completed:
		return "completed"
	case NotCompleted:
		return "not completed"
	default:
		return "unknown"
	}
}

// AnswersAPI — часть API, которая знает о прохождениях.
type AnswersAPI interface {
	MyAnswers(ctx context.Context, surveyID int) ([]models.Answer, error)
	CompletedSurveys(ctx context.Context) ([]int, error)
}

// Markers — локальные отметки о прохождении.
type Markers interface {
	IsMarkedCompleted(ctx context.Context, surveyID int, username string) (bool, error)
}

// Result — результат проверки одного опроса.
type Result struct {
	Status Status

	// Answers — ответы, которые вернул сервер (только при FromServer).
	Answers    []models.Answer
	FromServer bool

	// ServerErr — ошибка запроса к серверу, из-за которой пришлось
	// опереться на локальную отметку.
	ServerErr error
}

// Resolver определяет, прошёл ли пользователь опрос.
// Сервер главнее: его ответ "не проходил" окончательный, к локальной отметке
// обращаемся только если сервер недоступен или пользователь не вошёл.
type Resolver struct {
	api     AnswersAPI
	markers Markers
}

// NewResolver создаёт Resolver.
func NewResolver(api AnswersAPI, markers Markers) *Resolver {
	return &Resolver{api: api, markers: markers}
}

// Resolve проверяет опрос surveyID для пользователя identity.
func (r *Resolver) Resolve(ctx context.Context, surveyID int, identity models.Identity) (Result, error) {
	if !identity.Authenticated() {
		marked, err := r.marked(ctx, surveyID, identity)
		if err != nil {
			return Result{}, err
		}

		if marked {
			return Result{Status: Completed}, nil
		}

		return Result{Status: NotCompleted}, nil
	}

	answers, serverErr := r.api.MyAnswers(ctx, surveyID)
	if serverErr == nil {
		if len(answers) > 0 {
			return Result{Status: Completed, Answers: answers, FromServer: true}, nil
		}

		return Result{Status: NotCompleted, FromServer: true}, nil
	}

	switch {
	case errors.Is(serverErr, client.ErrNotFound):
		// сервер ответил: ответов этого пользователя нет
		return Result{Status: NotCompleted, FromServer: true}, nil
	case !canFallBack(serverErr):
		slog.Debug("answers lookup rejected", "survey_id", surveyID, "error", serverErr)
		return Result{Status: Unknown, ServerErr: serverErr}, nil
	}

	slog.Debug("answers lookup failed, using local marker",
		"survey_id", surveyID,
		"error", serverErr,
	)

	marked, err := r.marked(ctx, surveyID, identity)
	if err != nil {
		return Result{}, err
	}

	if marked {
		return Result{Status: Completed, ServerErr: serverErr}, nil
	}

	return Result{Status: Unknown, ServerErr: serverErr}, nil
}

// canFallBack сообщает, что сервер не смог ответить о прохождении:
// нет связи, сессия не принята или сбой на стороне сервера.
func canFallBack(err error) bool {
	if client.IsTransport(err) || errors.Is(err, client.ErrUnauthorized) || errors.Is(err, client.ErrForbidden) {
		return true
	}

	var apiErr *client.APIError

	return errors.As(err, &apiErr) && apiErr.Status >= http.StatusInternalServerError
}

// ResolveAll проверяет сразу несколько опросов. Сначала спрашивает у сервера
// список пройденных, при неудаче смотрит на локальные отметки по каждому опросу.
// 404 здесь значит, что у сервера нет такого списка, а не что опросы не пройдены.
func (r *Resolver) ResolveAll(
	ctx context.Context,
	surveyIDs []int,
	identity models.Identity,
) (map[int]Status, error) {
	statuses := make(map[int]Status, len(surveyIDs))

	if identity.Authenticated() {
		completed, err := r.api.CompletedSurveys(ctx)
		if err == nil {
			done := make(map[int]struct{}, len(completed))
			for _, id := range completed {
				done[id] = struct{}{}
			}

			for _, id := range surveyIDs {
				if _, ok := done[id]; ok {
					statuses[id] = Completed
				} else {
					statuses[id] = NotCompleted
				}
			}

			return statuses, nil
		}

		slog.Debug("completed surveys lookup failed, using local markers", "error", err)
	}

	// без ответа сервера отсутствие отметки значит "не знаем",
	// а для гостя локальная отметка единственный источник
	missing := NotCompleted
	if identity.Authenticated() {
		missing = Unknown
	}

	for _, id := range surveyIDs {
		marked, err := r.marked(ctx, id, identity)
		if err != nil {
			return nil, err
		}

		if marked {
			statuses[id] = Completed
		} else {
			statuses[id] = missing
		}
	}

	return statuses, nil
}

func (r *Resolver) marked(ctx context.Context, surveyID int, identity models.Identity) (bool, error) {
	marked, err := r.markers.IsMarkedCompleted(ctx, surveyID, identity.DisplayName())
	if err != nil {
		return false, fmt.Errorf("failed to check completion marker: %w", err)
	}

	return marked, nil
}

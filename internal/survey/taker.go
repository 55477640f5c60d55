package survey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/letsssgooo/surveySite/internal/client"
	"github.com/letsssgooo/surveySite/internal/completion"
	"github.com/letsssgooo/surveySite/internal/domain/models"
	"github.com/letsssgooo/surveySite/internal/share"
)

// Taker ведёт одно прохождение опроса: загрузка, ответы, проверка,
// отправка и режим просмотра уже отправленных ответов.
type Taker struct {
	api      API
	session  Session
	resolver CompletionResolver

	mu        sync.Mutex
	loadSeq   int
	state     State
	surveyID  int
	survey    *models.Survey
	questions []models.Question
	answers   map[int]Value
	invalid   map[int]struct{}
	consent   bool
	review    map[int]string
	problems  problems
	message   string
	share     string
	redirect  string
}

// NewTaker создаёт новый Taker.
func NewTaker(api API, session Session, resolver CompletionResolver) *Taker {
	return &Taker{
		api:      api,
		session:  session,
		resolver: resolver,
		state:    StateLoading,
		answers:  make(map[int]Value),
		invalid:  make(map[int]struct{}),
	}
}

// loaded — результат загрузки, который применяется к Taker одним шагом.
type loaded struct {
	state     State
	survey    *models.Survey
	questions []models.Question
	review    map[int]string
	message   string
	share     string
	redirect  string
}

// Load загружает опрос и решает, показывать форму или режим просмотра.
// Ошибки загрузки не возвращаются, а переводят Taker в состояние error.
// Если пока шла загрузка началась следующая, результат отбрасывается.
func (t *Taker) Load(ctx context.Context, req LoadRequest) error {
	t.mu.Lock()
	t.loadSeq++
	seq := t.loadSeq
	t.resetLocked()
	t.state = StateLoading
	t.surveyID = req.SurveyID
	t.mu.Unlock()

	result, err := t.load(ctx, req)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if seq != t.loadSeq {
		slog.Debug("dropping stale survey load", "survey_id", req.SurveyID)
		return nil
	}

	t.state = result.state
	t.survey = result.survey
	t.questions = result.questions
	t.review = result.review
	t.message = result.message
	t.share = result.share
	t.redirect = result.redirect

	return nil
}

func (t *Taker) load(ctx context.Context, req LoadRequest) (loaded, error) {
	identity, err := t.session.Identity(ctx)
	if err != nil {
		return loaded{}, err
	}

	shareToken := req.ShareToken
	if shareToken == "" {
		active, err := t.session.ActiveShare(ctx)
		if err != nil {
			return loaded{}, err
		}

		if active != nil && active.SurveyID == req.SurveyID {
			shareToken = active.Share
		}
	}

	survey, err := t.api.GetSurvey(ctx, req.SurveyID, shareToken)
	if err != nil {
		return t.fetchFailed(ctx, req.SurveyID, err)
	}

	if shareToken != "" {
		if err = share.Verify(shareToken, req.SurveyID); err != nil {
			slog.Warn("rejected share link", "survey_id", req.SurveyID, "error", err)
			return loaded{state: StateError, message: MsgInvalidShareLink}, nil
		}

		err = t.session.SetActiveShare(ctx, models.ShareSession{SurveyID: req.SurveyID, Share: shareToken})
		if err != nil {
			return loaded{}, err
		}
	}

	result := loaded{
		survey:    survey,
		questions: VisibleQuestions(survey.Questions),
		share:     shareToken,
	}

	if len(result.questions) == 0 {
		result.state = StateNoQuestions
		return result, nil
	}

	inReview, serverAnswers, err := t.detectReview(ctx, req, identity)
	if err != nil {
		return loaded{}, err
	}

	if !inReview {
		result.state = StateAnswering
		return result, nil
	}

	result.state = StateReview
	result.review = t.reviewAnswers(ctx, req.SurveyID, identity, result.questions, serverAnswers)

	return result, nil
}

// fetchFailed переводит ошибку загрузки опроса в состояние.
func (t *Taker) fetchFailed(ctx context.Context, surveyID int, err error) (loaded, error) {
	slog.Warn("failed to fetch survey", "survey_id", surveyID, "error", err)

	switch {
	case errors.Is(err, client.ErrUnauthorized):
		if signOutErr := t.session.SignOut(ctx); signOutErr != nil {
			return loaded{}, signOutErr
		}

		return loaded{state: StateError, message: MsgSessionExpired, redirect: RouteLogin}, nil
	case errors.Is(err, client.ErrForbidden):
		return loaded{state: StateError, message: MsgAccessDenied}, nil
	default:
		return loaded{state: StateError, message: MsgFetchFailed}, nil
	}
}

// detectReview решает, нужен ли режим просмотра.
// Явный флаг review сильнее всего. Без него одноразовый флаг после
// повторного прохождения отключает автоопределение ровно на одну загрузку.
func (t *Taker) detectReview(
	ctx context.Context,
	req LoadRequest,
	identity models.Identity,
) (bool, []models.Answer, error) {
	if !req.Review {
		skip, err := t.session.ConsumeSkipReview(ctx, req.SurveyID)
		if err != nil {
			return false, nil, err
		}

		if skip {
			return false, nil, nil
		}
	}

	result, err := t.resolver.Resolve(ctx, req.SurveyID, identity)
	if err != nil {
		return false, nil, err
	}

	return req.Review || result.Status == completion.Completed, result.Answers, nil
}

// reviewAnswers берёт ответы с сервера, а если их нет, ищет последний
// ответ пользователя в общем списке ответов на опрос.
func (t *Taker) reviewAnswers(
	ctx context.Context,
	surveyID int,
	identity models.Identity,
	questions []models.Question,
	serverAnswers []models.Answer,
) map[int]string {
	if len(serverAnswers) > 0 {
		return reviewValues(questions, serverAnswers)
	}

	responses, err := t.api.ListResponses(ctx, surveyID)
	if err != nil {
		slog.Debug("response list unavailable for review", "survey_id", surveyID, "error", err)
		return map[int]string{}
	}

	latest, ok := latestResponseOf(responses, identity.DisplayName())
	if !ok {
		return map[int]string{}
	}

	return reviewValues(questions, latest.Answers)
}

// Answer записывает ответ на вопрос и снимает с него подсветку.
func (t *Taker) Answer(questionID int, raw string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.redirect = ""

	if t.state != StateAnswering {
		return fmt.Errorf("%w: state is %s", ErrNotAnswering, t.state)
	}

	q, ok := t.questionLocked(questionID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownQuestion, questionID)
	}

	value, err := parseValue(q, raw)
	if err != nil {
		return err
	}

	t.answers[questionID] = value
	delete(t.invalid, questionID)

	return nil
}

// SetConsent отмечает согласие. Сообщение о согласии пропадает.
func (t *Taker) SetConsent(consent bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.redirect = ""

	if t.state != StateAnswering {
		return fmt.Errorf("%w: state is %s", ErrNotAnswering, t.state)
	}

	t.consent = consent
	t.problems.consent = false
	t.message = t.problems.message()

	return nil
}

// Validate возвращает id обязательных видимых вопросов без ответа.
func (t *Taker) Validate() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return unansweredRequired(t.questions, t.answers)
}

// Submit проверяет ответы и согласие и отправляет их.
// При ошибке проверки запрос не уходит, ответы сохраняются.
func (t *Taker) Submit(ctx context.Context) error {
	t.mu.Lock()

	t.redirect = ""

	if t.state == StateSubmitting {
		t.mu.Unlock()
		return ErrSubmitInFlight
	}

	if t.state != StateAnswering {
		state := t.state
		t.mu.Unlock()

		return fmt.Errorf("%w: state is %s", ErrNotAnswering, state)
	}

	invalid := unansweredRequired(t.questions, t.answers)
	t.problems = problems{required: len(invalid) > 0, consent: !t.consent}

	if t.problems.required || t.problems.consent {
		clear(t.invalid)
		for _, id := range invalid {
			t.invalid[id] = struct{}{}
		}
		t.message = t.problems.message()

		var errs []error
		if t.problems.required {
			errs = append(errs, ErrRequired)
		}
		if t.problems.consent {
			errs = append(errs, ErrConsent)
		}
		t.mu.Unlock()

		return fmt.Errorf("%w: %w", ErrValidation, errors.Join(errs...))
	}

	surveyID := t.surveyID
	shareToken := t.share
	answers := buildAnswers(t.questions, t.answers)
	seq := t.loadSeq
	t.state = StateSubmitting
	t.message = ""
	t.mu.Unlock()

	identity, err := t.session.Identity(ctx)
	if err != nil {
		t.finishSubmit(seq, problems{server: MsgSubmitFailed}, "")
		return err
	}

	payload := models.SurveyResponse{
		Username:     identity.DisplayName(),
		Answers:      answers,
		ConsentGiven: true,
	}

	err = t.api.SubmitResponse(ctx, surveyID, payload, shareToken)
	if err != nil {
		slog.Warn("failed to submit survey", "survey_id", surveyID, "error", err)

		if errors.Is(err, client.ErrUnauthorized) {
			if signOutErr := t.session.SignOut(ctx); signOutErr != nil {
				slog.Warn("failed to sign out", "error", signOutErr)
			}
			t.finishSubmit(seq, problems{server: MsgSessionExpired}, RouteLogin)

			return err
		}

		msg := client.ServerMessage(err)
		if msg == "" {
			msg = MsgSubmitFailed
		}
		t.finishSubmit(seq, problems{server: msg}, "")

		return err
	}

	if err = t.session.MarkCompleted(ctx, surveyID, identity.DisplayName()); err != nil {
		slog.Warn("failed to write completion marker", "survey_id", surveyID, "error", err)
	}

	if shareToken != "" {
		if err = t.session.ClearActiveShare(ctx); err != nil {
			slog.Warn("failed to clear share session", "error", err)
		}
	}

	slog.Info("survey submitted", "survey_id", surveyID, "username", payload.Username)

	t.mu.Lock()
	defer t.mu.Unlock()

	// пока шла отправка, загрузили другой опрос: его состояние не трогаем
	if seq != t.loadSeq {
		return nil
	}

	t.resetFormLocked()
	t.share = ""
	t.state = StateSubmitted
	t.redirect = RouteSurveys

	return nil
}

// finishSubmit возвращает форму после неудачной отправки, ответы остаются.
// Если за это время началась новая загрузка, ничего не меняет.
func (t *Taker) finishSubmit(seq int, p problems, redirect string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if seq != t.loadSeq {
		return
	}

	t.state = StateAnswering
	t.problems = p
	t.message = p.message()
	t.redirect = redirect
}

// Retake выходит из режима просмотра: снимает отметку о прохождении,
// ставит одноразовый флаг и отправляет на страницу опроса.
func (t *Taker) Retake(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.redirect = ""

	if t.state != StateReview {
		return fmt.Errorf("%w: state is %s", ErrNotInReview, t.state)
	}

	identity, err := t.session.Identity(ctx)
	if err != nil {
		return err
	}

	if err = t.session.ClearCompleted(ctx, t.surveyID, identity.DisplayName()); err != nil {
		return err
	}

	if err = t.session.SetSkipReview(ctx, t.surveyID); err != nil {
		return err
	}

	t.resetFormLocked()
	t.review = nil
	t.state = StateAnswering
	t.redirect = SurveyRoute(t.surveyID, t.share)

	return nil
}

// ExitShare покидает режим общей ссылки и ведёт к списку опросов.
func (t *Taker) ExitShare(ctx context.Context) error {
	if err := t.session.ClearActiveShare(ctx); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.share = ""
	t.redirect = RouteSurveys

	return nil
}

// View возвращает снимок текущего состояния.
func (t *Taker) View() View {
	t.mu.Lock()
	defer t.mu.Unlock()

	view := View{
		State:      t.state,
		SurveyID:   t.surveyID,
		Questions:  slices.Clone(t.questions),
		Answers:    maps.Clone(t.answers),
		Consent:    t.consent,
		Message:    t.message,
		Shared:     t.share != "",
		ShareToken: t.share,
		Redirect:   t.redirect,
	}

	if t.survey != nil {
		survey := *t.survey
		survey.Questions = slices.Clone(t.survey.Questions)
		view.Survey = &survey
	}

	if t.review != nil {
		view.ReviewAnswers = maps.Clone(t.review)
	}

	for _, q := range t.questions {
		if _, ok := t.invalid[q.ID]; ok {
			view.Invalid = append(view.Invalid, q.ID)
		}
	}

	if len(t.questions) > 0 {
		answered := 0
		for _, q := range t.questions {
			value, ok := t.answers[q.ID]
			if isAnswered(q, value, ok) {
				answered++
			}
		}
		view.Progress = answered * 100 / len(t.questions)
	}

	return view
}

func (t *Taker) questionLocked(id int) (models.Question, bool) {
	for _, q := range t.questions {
		if q.ID == id {
			return q, true
		}
	}

	return models.Question{}, false
}

func (t *Taker) resetFormLocked() {
	t.answers = make(map[int]Value)
	t.invalid = make(map[int]struct{})
	t.consent = false
	t.problems = problems{}
	t.message = ""
}

func (t *Taker) resetLocked() {
	t.resetFormLocked()
	t.survey = nil
	t.questions = nil
	t.review = nil
	t.share = ""
	t.redirect = ""
}

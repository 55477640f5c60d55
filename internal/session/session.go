package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/letsssgooo/surveySite/internal/domain/models"
	"github.com/letsssgooo/surveySite/internal/storage"
)

// Session — единая точка доступа к состоянию клиента: данные входа,
// отметки о прохождении, ключи общих ссылок и контекст общей ссылки.
// local переживает перезапуск клиента, tab живёт, пока открыт сеанс.
type Session struct {
	local storage.Storage
	tab   storage.Storage
	now   func() time.Time

	mu          sync.Mutex
	subscribers map[int]func(models.Identity)
	nextSubID   int
}

// New создаёт сессию поверх постоянного хранилища local и хранилища сеанса tab.
func New(local, tab storage.Storage) *Session {
	return &Session{
		local:       local,
		tab:         tab,
		now:         time.Now,
		subscribers: make(map[int]func(models.Identity)),
	}
}

// Identity возвращает текущего пользователя.
// Токен JWT с истёкшим сроком считается отсутствующим.
func (s *Session) Identity(ctx context.Context) (models.Identity, error) {
	token, _, err := s.local.Get(ctx, KeyToken)
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to read token: %w", err)
	}

	if token != "" && s.expired(token) {
		slog.Debug("stored token expired, treating as signed out")
		return models.Identity{}, nil
	}

	role, _, err := s.local.Get(ctx, KeyRole)
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to read role: %w", err)
	}

	username, _, err := s.local.Get(ctx, KeyUsername)
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to read username: %w", err)
	}

	return models.Identity{
		Username: username,
		Role:     models.Role(role),
		Token:    token,
	}, nil
}

// Token реализует client.TokenSource.
func (s *Session) Token(ctx context.Context) string {
	identity, err := s.Identity(ctx)
	if err != nil {
		slog.Warn("failed to read identity", "error", err)
		return ""
	}

	return identity.Token
}

// SignIn сохраняет данные вошедшего пользователя и уведомляет подписчиков.
func (s *Session) SignIn(ctx context.Context, identity models.Identity) error {
	values := [][2]string{
		{KeyToken, identity.Token},
		{KeyRole, string(identity.Role)},
		{KeyUsername, identity.Username},
	}

	for _, kv := range values {
		if err := s.local.Set(ctx, kv[0], kv[1]); err != nil {
			return fmt.Errorf("failed to save %s: %w", kv[0], err)
		}
	}

	s.notify(identity)

	return nil
}

// SignOut удаляет данные входа, контекст общей ссылки и флаги
// "не показывать просмотр". Отметки о прохождении и ключи общих ссылок остаются.
func (s *Session) SignOut(ctx context.Context) error {
	for _, key := range []string{KeyToken, KeyRole, KeyUsername} {
		if err := s.local.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}

	if err := s.ClearActiveShare(ctx); err != nil {
		return err
	}

	if err := s.clearSkipReview(ctx); err != nil {
		return err
	}

	s.notify(models.Identity{})

	return nil
}

// Subscribe регистрирует fn, которая вызывается при каждом входе и выходе.
// Возвращает функцию отписки.
func (s *Session) Subscribe(fn func(models.Identity)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.subscribers, id)
	}
}

func (s *Session) notify(identity models.Identity) {
	s.mu.Lock()
	subscribers := make([]func(models.Identity), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(identity)
	}
}

// expired сообщает, что токен — JWT с истёкшим сроком действия.
// Подпись не проверяется: это делает сервер.
func (s *Session) expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}

	return !exp.After(s.now())
}

// MarkCompleted записывает отметку о прохождении опроса.
func (s *Session) MarkCompleted(ctx context.Context, surveyID int, username string) error {
	if err := s.local.Set(ctx, CompletionKey(surveyID, username), completedValue); err != nil {
		return fmt.Errorf("failed to mark survey %d completed: %w", surveyID, err)
	}

	return nil
}

// ClearCompleted удаляет отметку о прохождении опроса.
func (s *Session) ClearCompleted(ctx context.Context, surveyID int, username string) error {
	if err := s.local.Delete(ctx, CompletionKey(surveyID, username)); err != nil {
		return fmt.Errorf("failed to clear completion of survey %d: %w", surveyID, err)
	}

	return nil
}

// IsMarkedCompleted сообщает, есть ли отметка о прохождении опроса.
func (s *Session) IsMarkedCompleted(ctx context.Context, surveyID int, username string) (bool, error) {
	value, ok, err := s.local.Get(ctx, CompletionKey(surveyID, username))
	if err != nil {
		return false, fmt.Errorf("failed to read completion of survey %d: %w", surveyID, err)
	}

	return ok && value == completedValue, nil
}

// SetSkipReview ставит одноразовый флаг: при следующей загрузке опроса
// не переходить в режим просмотра автоматически.
func (s *Session) SetSkipReview(ctx context.Context, surveyID int) error {
	return s.tab.Set(ctx, SkipReviewKey(surveyID), "true")
}

// ConsumeSkipReview возвращает флаг и сразу его снимает.
func (s *Session) ConsumeSkipReview(ctx context.Context, surveyID int) (bool, error) {
	key := SkipReviewKey(surveyID)

	value, ok, err := s.tab.Get(ctx, key)
	if err != nil {
		return false, err
	}

	if !ok {
		return false, nil
	}

	if err = s.tab.Delete(ctx, key); err != nil {
		return false, err
	}

	return value == "true", nil
}

func (s *Session) clearSkipReview(ctx context.Context) error {
	keys, err := s.tab.Keys(ctx, skipReviewPrefix)
	if err != nil {
		return fmt.Errorf("failed to list skip review flags: %w", err)
	}

	for _, key := range keys {
		if err = s.tab.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}

	return nil
}

// ActiveShare возвращает контекст общей ссылки или nil.
// Повреждённое значение удаляется и считается отсутствующим.
func (s *Session) ActiveShare(ctx context.Context) (*models.ShareSession, error) {
	raw, ok, err := s.tab.Get(ctx, KeyActiveShare)
	if err != nil {
		return nil, err
	}

	if !ok || raw == "" {
		return nil, nil
	}

	share, err := decodeShareSession(raw)
	if err != nil {
		slog.Warn("dropping corrupted share session", "error", err)
		return nil, s.tab.Delete(ctx, KeyActiveShare)
	}

	return share, nil
}

// SetActiveShare сохраняет контекст общей ссылки.
func (s *Session) SetActiveShare(ctx context.Context, share models.ShareSession) error {
	data, err := json.Marshal(share)
	if err != nil {
		return err
	}

	return s.tab.Set(ctx, KeyActiveShare, string(data))
}

// ClearActiveShare удаляет контекст общей ссылки.
func (s *Session) ClearActiveShare(ctx context.Context) error {
	if err := s.tab.Delete(ctx, KeyActiveShare); err != nil {
		return fmt.Errorf("failed to clear share session: %w", err)
	}

	return nil
}

// ShareToken возвращает сохранённый ключ общей ссылки опроса.
func (s *Session) ShareToken(ctx context.Context, surveyID int) (string, bool, error) {
	shares, err := s.shareTokens(ctx)
	if err != nil {
		return "", false, err
	}

	token, ok := shares[strconv.Itoa(surveyID)]

	return token, ok && token != "", nil
}

// SaveShareToken сохраняет ключ общей ссылки опроса.
func (s *Session) SaveShareToken(ctx context.Context, surveyID int, token string) error {
	shares, err := s.shareTokens(ctx)
	if err != nil {
		return err
	}

	shares[strconv.Itoa(surveyID)] = token

	data, err := json.Marshal(shares)
	if err != nil {
		return err
	}

	return s.local.Set(ctx, KeySurveyShare, string(data))
}

func (s *Session) shareTokens(ctx context.Context) (map[string]string, error) {
	raw, ok, err := s.local.Get(ctx, KeySurveyShare)
	if err != nil {
		return nil, fmt.Errorf("failed to read share tokens: %w", err)
	}

	shares := make(map[string]string)
	if !ok || strings.TrimSpace(raw) == "" {
		return shares, nil
	}

	if err = json.Unmarshal([]byte(raw), &shares); err != nil {
		slog.Warn("ignoring corrupted share tokens", "error", err)
		return make(map[string]string), nil
	}

	return shares, nil
}

// decodeShareSession принимает id и числом, и строкой.
func decodeShareSession(raw string) (*models.ShareSession, error) {
	var payload struct {
		ID    json.RawMessage `json:"id"`
		Share string          `json:"share"`
	}

	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupted, err)
	}

	idText := strings.Trim(string(payload.ID), `"`)

	id, err := strconv.Atoi(idText)
	if err != nil {
		return nil, fmt.Errorf("%w: survey id %q", ErrCorrupted, idText)
	}

	return &models.ShareSession{SurveyID: id, Share: payload.Share}, nil
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/letsssgooo/surveySite/internal/client"
	"github.com/letsssgooo/surveySite/internal/domain/models"
)

// Service отвечает за вход, регистрацию и выход.
type Service struct {
	api     API
	session Session
	now     func() time.Time
}

func NewService(api API, session Session) *Service {
	return &Service{
		api:     api,
		session: session,
		now:     time.Now,
	}
}

// Login выполняет вход обычного пользователя.
// Администратор после входа попадает в панель, остальные на главную.
func (s *Service) Login(ctx context.Context, username, password string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeoutAuth)
	defer cancel()

	res, err := s.api.Login(ctx, client.Credentials{Username: username, Password: password})
	if err != nil {
		slog.Debug("login failed", "username", username, "error", err)
		return nil, &Error{Message: MsgInvalidCredentials, Err: fmt.Errorf("%w: %w", ErrInvalidCredentials, err)}
	}

	identity := identityFrom(res, username)
	if err = s.session.SignIn(ctx, identity); err != nil {
		return nil, err
	}

	redirect := RouteHome
	if identity.IsAdmin() {
		redirect = RouteAdmin
	}

	slog.Info("signed in", "username", identity.Username, "role", identity.Role)

	return &Result{Identity: identity, Redirect: redirect}, nil
}

// AdminLogin выполняет вход в панель администратора. Входит только
// пользователь с ролью Admin, получивший токен.
func (s *Service) AdminLogin(ctx context.Context, username, password string) (*Result, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, invalid(MsgEnterCredentials)
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutAuth)
	defer cancel()

	res, err := s.api.Login(ctx, client.Credentials{Username: username, Password: password})
	if err != nil {
		msg := MsgInvalidCredentials

		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			msg = apiErr.Message
		}

		return nil, &Error{Message: msg, Err: fmt.Errorf("%w: %w", ErrInvalidCredentials, err)}
	}

	if res.Role != models.RoleAdmin {
		return nil, &Error{Message: MsgNotAdmin, Err: ErrNotAdmin}
	}

	if res.Token == "" {
		return nil, &Error{Message: MsgNoToken, Err: ErrNoToken}
	}

	identity := identityFrom(res, username)
	if err = s.session.SignIn(ctx, identity); err != nil {
		return nil, err
	}

	slog.Info("admin signed in", "username", identity.Username)

	return &Result{Identity: identity, Redirect: RouteAdmin}, nil
}

// Register проверяет форму и регистрирует пользователя с ролью User.
// Сообщение сервера об ошибке показывается как есть.
func (s *Service) Register(ctx context.Context, form RegisterForm) error {
	req, err := ParseRegistration(form, s.now())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutAuth)
	defer cancel()

	if err = s.api.Register(ctx, req); err != nil {
		msg := MsgRegisterFailed

		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			msg = apiErr.Message
		}

		return &Error{Message: msg, Err: fmt.Errorf("%w: %w", ErrRegistration, err)}
	}

	slog.Info("user registered", "username", req.Username)

	return nil
}

// Logout выходит из учётной записи. Отметки о пройденных опросах и
// ключи общих ссылок сохраняются.
func (s *Service) Logout(ctx context.Context) (string, error) {
	if err := s.session.SignOut(ctx); err != nil {
		return "", err
	}

	return RouteLogin, nil
}

func identityFrom(res *client.LoginResult, username string) models.Identity {
	identity := models.Identity{
		Username: res.Username,
		Role:     res.Role,
		Token:    res.Token,
	}

	if identity.Username == "" {
		identity.Username = username
	}

	return identity
}

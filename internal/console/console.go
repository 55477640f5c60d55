package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/letsssgooo/surveySite/internal/admin"
	"github.com/letsssgooo/surveySite/internal/auth"
	"github.com/letsssgooo/surveySite/internal/catalog"
	"github.com/letsssgooo/surveySite/internal/domain/models"
	"github.com/letsssgooo/surveySite/internal/events/fetcher"
	"github.com/letsssgooo/surveySite/internal/events/sender"
	"github.com/letsssgooo/surveySite/internal/shell"
	"github.com/letsssgooo/surveySite/internal/survey"
)

// Сколько переходов подряд может вызвать одна команда.
const maxNavigations = 4

// Session — состояние клиента, которое нужно консоли.
type Session interface {
	Identity(ctx context.Context) (models.Identity, error)
	ClearActiveShare(ctx context.Context) error
	Subscribe(fn func(models.Identity)) func()
}

// Deps — страницы и сервисы, которыми управляет консоль.
type Deps struct {
	Session   Session
	Shell     *shell.Shell
	Auth      *auth.Service
	Taker     *survey.Taker
	Catalog   *catalog.Catalog
	Dashboard *admin.Dashboard
}

// Console читает команды, передаёт их страницам и перерисовывает
// текущую страницу вместе с навигацией.
type Console struct {
	fetcher fetcher.Fetcher
	sender  sender.Sender
	deps    Deps
	now     func() time.Time

	page    *shell.Resolution
	entries []catalog.Entry
	draft   *admin.Draft
	notice  string
	problem string
}

// New создаёт консоль.
func New(f fetcher.Fetcher, s sender.Sender, deps Deps) *Console {
	return &Console{
		fetcher: f,
		sender:  s,
		deps:    deps,
		now:     time.Now,
	}
}

// Run открывает start и обрабатывает команды до quit или конца ввода.
func (c *Console) Run(ctx context.Context, start string) error {
	unsubscribe := c.deps.Session.Subscribe(func(identity models.Identity) {
		slog.Debug("identity changed", "username", identity.Username, "role", identity.Role)
	})
	defer unsubscribe()

	if err := c.navigate(ctx, start); err != nil {
		return err
	}

	if err := c.render(ctx); err != nil {
		return err
	}

	for {
		cmd, err := c.fetcher.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}

			if errors.Is(err, fetcher.ErrUnbalancedQuote) {
				c.problem = err.Error()
				if err = c.render(ctx); err != nil {
					return err
				}
				continue
			}

			return fmt.Errorf("failed to read command: %w", err)
		}

		quit, err := c.Handle(ctx, cmd)
		if err != nil {
			return err
		}

		if quit {
			return c.sender.Message(sender.StyleMuted, msgBye)
		}
	}
}

// Handle выполняет одну команду и перерисовывает страницу.
// Ошибки команды показываются пользователю, наружу выходят только
// ошибки вывода и хранилища.
func (c *Console) Handle(ctx context.Context, cmd *fetcher.Command) (bool, error) {
	slog.Debug("command", "name", cmd.Name, "args", len(cmd.Args))

	c.notice, c.problem = "", ""

	if cmd.Name == "quit" || cmd.Name == "exit" {
		return true, nil
	}

	if cmd.Name == "help" {
		return false, c.sender.Message(sender.StylePlain, msgHelp)
	}

	handler, ok := c.commands()[cmd.Name]
	if !ok {
		c.problem = msgUnknownCommand
		return false, c.render(ctx)
	}

	if err := handler(ctx, cmd.Args); err != nil {
		var fatal *fatalError
		if errors.As(err, &fatal) {
			return false, fatal.err
		}

		slog.Debug("command failed", "name", cmd.Name, "error", err)

		if c.problem == "" {
			c.problem = describe(err)
		}
	}

	return false, c.render(ctx)
}

// navigate открывает путь с учётом правил оболочки и загружает страницу.
// Если загрузка сама уводит на другой путь, переход повторяется.
func (c *Console) navigate(ctx context.Context, path string) error {
	for range maxNavigations {
		res, err := c.deps.Shell.Resolve(ctx, path)
		if err != nil {
			return &fatalError{err: err}
		}

		c.page = res
		c.entries = nil

		next, err := c.load(ctx)
		if err != nil {
			return err
		}

		if next == "" {
			return nil
		}

		path = next
	}

	return nil
}

// load загружает данные текущей страницы. Возвращает путь, если
// страница требует перехода.
func (c *Console) load(ctx context.Context) (string, error) {
	switch c.page.Route.Page {
	case shell.PageSurvey:
		err := c.deps.Taker.Load(ctx, survey.LoadRequest{
			SurveyID:   c.page.SurveyID,
			Review:     c.page.Query.Get("review") == "true",
			ShareToken: c.page.Query.Get("share"),
		})
		if err != nil {
			return "", &fatalError{err: err}
		}

		return c.deps.Taker.View().Redirect, nil

	case shell.PageSurveys:
		entries, err := c.deps.Catalog.Load(ctx)
		if err != nil {
			if errors.Is(err, catalog.ErrLoginRequired) {
				c.problem = catalog.MsgLoginRequired
				return "", nil
			}

			c.problem = catalog.MsgLoadFailed
			slog.Warn("failed to load surveys", "error", err)

			return "", nil
		}

		c.entries = entries

	case shell.PageAdmin:
		if err := c.deps.Dashboard.Load(ctx); err != nil {
			return c.adminFailed(err)
		}

	case shell.PageCreateSurvey:
		c.draft = c.deps.Dashboard.NewDraft()

	case shell.PageEditSurvey:
		draft, err := c.deps.Dashboard.EditDraft(ctx, c.page.SurveyID)
		if err != nil {
			c.draft = nil
			return c.adminFailed(err)
		}

		c.draft = draft
	}

	return "", nil
}

// adminFailed показывает ошибку панели и при истёкшей сессии уводит на вход.
func (c *Console) adminFailed(err error) (string, error) {
	if errors.Is(err, admin.ErrSessionExpired) || errors.Is(err, admin.ErrAdminRequired) {
		c.problem = admin.MsgSessionExpired
		return shell.PathLogin, nil
	}

	c.problem = describe(err)

	return "", nil
}

// fatalError — ошибка, после которой консоль не может продолжать.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string {
	return e.err.Error()
}

func (e *fatalError) Unwrap() error {
	return e.err
}

// describe превращает ошибку команды в текст для пользователя.
func describe(err error) string {
	if msg := auth.Message(err); msg != "" {
		return msg
	}

	return err.Error()
}

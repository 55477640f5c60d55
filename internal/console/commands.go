package console

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/letsssgooo/surveySite/internal/admin"
	"github.com/letsssgooo/surveySite/internal/auth"
	"github.com/letsssgooo/surveySite/internal/domain/models"
	"github.com/letsssgooo/surveySite/internal/export"
	"github.com/letsssgooo/surveySite/internal/shell"
	"github.com/letsssgooo/surveySite/internal/survey"
)

// Ошибки ввода команд
var (
	errNotHere = errors.New(msgNotHere)
	errNoDraft = errors.New("no survey is being edited")
)

type handler func(ctx context.Context, args []string) error

func (c *Console) commands() map[string]handler {
	return map[string]handler{
		"open":        c.open,
		"login":       c.login,
		"admin-login": c.adminLogin,
		"register":    c.register,
		"logout":      c.logout,

		"take": c.take,

		"answer":     c.answer,
		"consent":    c.consent,
		"submit":     c.submit,
		"retake":     c.retake,
		"exit-share": c.exitShare,

		"select":          c.selectSurvey,
		"filter":          c.filter,
		"reset":           c.reset,
		"search":          c.search,
		"delete-response": c.deleteResponse,
		"delete-survey":   c.deleteSurvey,
		"confirm":         c.confirm,
		"cancel":          c.cancel,
		"export":          c.export,
		"link":            c.link,
		"qr":              c.qr,
		"edit":            c.edit,

		"title":           c.title,
		"description":     c.description,
		"add-question":    c.addQuestion,
		"remove-question": c.removeQuestion,
		"save":            c.save,
	}
}

func usage(text string) error {
	return fmt.Errorf("usage: %s", text)
}

func parseID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%q is not a valid id", raw)
	}

	return id, nil
}

// on проверяет, что открыта одна из страниц.
func (c *Console) on(pages ...shell.Page) error {
	if c.page == nil || !slices.Contains(pages, c.page.Route.Page) {
		return errNotHere
	}

	return nil
}

func (c *Console) open(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("open <path>")
	}

	return c.navigate(ctx, args[0])
}

func (c *Console) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("login <username> <password>")
	}

	res, err := c.deps.Auth.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	if err = c.navigate(ctx, res.Redirect); err != nil {
		return err
	}

	c.notice = "Logged in as " + res.Identity.Username

	return nil
}

func (c *Console) adminLogin(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("admin-login <username> <password>")
	}

	res, err := c.deps.Auth.AdminLogin(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	if err = c.navigate(ctx, res.Redirect); err != nil {
		return err
	}

	c.notice = "Logged in as " + res.Identity.Username

	return nil
}

func (c *Console) register(ctx context.Context, args []string) error {
	var form auth.RegisterForm

	fields := map[string]*string{
		"first":    &form.FirstName,
		"middle":   &form.MiddleName,
		"last":     &form.LastName,
		"dob":      &form.DateOfBirth,
		"email":    &form.Email,
		"phone":    &form.PhoneNumber,
		"username": &form.Username,
		"password": &form.Password,
		"confirm":  &form.ConfirmPassword,
	}

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		field, known := fields[strings.ToLower(key)]
		if !ok || !known {
			return usage("register key=value ... (see help)")
		}
		*field = value
	}

	if err := c.deps.Auth.Register(ctx, form); err != nil {
		return err
	}

	if err := c.navigate(ctx, shell.PathLogin); err != nil {
		return err
	}

	c.notice = auth.MsgRegistered

	return nil
}

func (c *Console) logout(ctx context.Context, _ []string) error {
	next, err := c.deps.Auth.Logout(ctx)
	if err != nil {
		return &fatalError{err: err}
	}

	return c.navigate(ctx, next)
}

// take открывает опрос из списка по той же ссылке, что и кнопка строки.
func (c *Console) take(ctx context.Context, args []string) error {
	if err := c.on(shell.PageSurveys); err != nil {
		return err
	}

	if len(args) != 1 {
		return usage("take <survey id>")
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	for _, entry := range c.entries {
		if entry.Survey.ID == id {
			return c.navigate(ctx, entry.Link)
		}
	}

	return fmt.Errorf("%w: %d", admin.ErrUnknownSurvey, id)
}

func (c *Console) answer(_ context.Context, args []string) error {
	if err := c.on(shell.PageSurvey); err != nil {
		return err
	}

	if len(args) < 2 {
		return usage("answer <question id> <value>")
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%q is not a question id", args[0])
	}

	return c.deps.Taker.Answer(id, strings.Join(args[1:], " "))
}

func (c *Console) consent(_ context.Context, args []string) error {
	if err := c.on(shell.PageSurvey); err != nil {
		return err
	}

	if len(args) != 1 {
		return usage("consent yes|no")
	}

	switch strings.ToLower(args[0]) {
	case "yes", "y", "true":
		return c.deps.Taker.SetConsent(true)
	case "no", "n", "false":
		return c.deps.Taker.SetConsent(false)
	default:
		return usage("consent yes|no")
	}
}

func (c *Console) submit(ctx context.Context, _ []string) error {
	if err := c.on(shell.PageSurvey); err != nil {
		return err
	}

	err := c.deps.Taker.Submit(ctx)
	view := c.deps.Taker.View()

	if view.Redirect != "" {
		// Сообщение опроса на другой странице не видно.
		problem := view.Message
		if navErr := c.navigate(ctx, view.Redirect); navErr != nil {
			return navErr
		}

		if err == nil {
			c.notice = msgSubmitted
			return nil
		}

		c.problem = problem
	}

	if err != nil && (errors.Is(err, survey.ErrValidation) || view.Message != "") {
		return nil
	}

	return err
}

func (c *Console) retake(ctx context.Context, _ []string) error {
	if err := c.on(shell.PageSurvey); err != nil {
		return err
	}

	if err := c.deps.Taker.Retake(ctx); err != nil {
		return err
	}

	return c.navigate(ctx, c.deps.Taker.View().Redirect)
}

func (c *Console) exitShare(ctx context.Context, _ []string) error {
	if c.page != nil && c.page.Route.Page == shell.PageSurvey {
		if err := c.deps.Taker.ExitShare(ctx); err != nil {
			return &fatalError{err: err}
		}

		return c.navigate(ctx, c.deps.Taker.View().Redirect)
	}

	if err := c.deps.Session.ClearActiveShare(ctx); err != nil {
		return &fatalError{err: err}
	}

	return c.navigate(ctx, survey.RouteSurveys)
}

// dashboardFailed уводит на вход при истёкшей сессии. Если панель уже
// показывает сообщение об этой ошибке, второй раз оно не выводится.
func (c *Console) dashboardFailed(ctx context.Context, err error) error {
	message := c.deps.Dashboard.View().Message

	next, _ := c.adminFailed(err)
	if next != "" {
		return c.navigate(ctx, next)
	}

	if message != "" && strings.Contains(err.Error(), message) {
		c.problem = ""
	}

	return nil
}

func (c *Console) selectSurvey(ctx context.Context, args []string) error {
	if err := c.on(shell.PageAdmin); err != nil {
		return err
	}

	if len(args) != 1 {
		return usage("select <survey id>")
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	if err = c.deps.Dashboard.Select(ctx, id); err != nil {
		return c.dashboardFailed(ctx, err)
	}

	return nil
}

func (c *Console) filter(ctx context.Context, args []string) error {
	if err := c.on(shell.PageAdmin); err != nil {
		return err
	}

	var start, end string
	if len(args) > 0 {
		start = args[0]
	}
	if len(args) > 1 {
		end = args[1]
	}

	if err := c.deps.Dashboard.FilterByDate(start, end); err != nil {
		return c.dashboardFailed(ctx, err)
	}

	return nil
}

func (c *Console) reset(_ context.Context, _ []string) error {
	if err := c.on(shell.PageAdmin); err != nil {
		return err
	}

	c.deps.Dashboard.Reset()

	return nil
}

func (c *Console) search(_ context.Context, args []string) error {
	if err := c.on(shell.PageAdmin); err != nil {
		return err
	}

	c.deps.Dashboard.Search(strings.Join(args, " "))

	return nil
}

func (c *Console) deleteResponse(_ context.Context, args []string) error {
	if err := c.on(shell.PageAdmin); err != nil {
		return err
	}

	if len(args) != 1 {
		return usage("delete-response <id>")
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	return c.deps.Dashboard.RequestDeleteResponse(id)
}

func (c *Console) deleteSurvey(_ context.Context, args []string) error {
	if err := c.on(shell.PageAdmin); err != nil {
		return err
	}

	if len(args) != 1 {
		return usage("delete-survey <id>")
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	return c.deps.Dashboard.RequestDeleteSurvey(id)
}

func (c *Console) confirm(ctx context.Context, _ []string) error {
	if err := c.on(shell.PageAdmin); err != nil {
		return err
	}

	if err := c.deps.Dashboard.Confirm(ctx); err != nil {
		if errors.Is(err, admin.ErrNoPending) {
			return err
		}

		return c.dashboardFailed(ctx, err)
	}

	return nil
}

func (c *Console) cancel(_ context.Context, _ []string) error {
	if err := c.on(shell.PageAdmin); err != nil {
		return err
	}

	c.deps.Dashboard.Cancel()

	return nil
}

func (c *Console) export(_ context.Context, args []string) error {
	if err := c.on(shell.PageAdmin); err != nil {
		return err
	}

	if len(args) != 1 {
		return usage("export xlsx|csv|pdf")
	}

	format, err := export.ParseFormat(args[0])
	if err != nil {
		return err
	}

	path, err := c.deps.Dashboard.Export(format)
	if err != nil {
		if errors.Is(err, export.ErrNoData) {
			return nil
		}

		return err
	}

	c.notice = "Saved " + path

	return nil
}

func (c *Console) link(ctx context.Context, args []string) error {
	if err := c.on(shell.PageAdmin); err != nil {
		return err
	}

	if len(args) != 1 {
		return usage("link <survey id>")
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	link, err := c.deps.Dashboard.ShareLink(ctx, id)
	if err != nil {
		return err
	}

	c.notice = "Share link: " + link

	return nil
}

func (c *Console) qr(ctx context.Context, args []string) error {
	if err := c.on(shell.PageAdmin); err != nil {
		return err
	}

	if len(args) != 1 {
		return usage("qr <survey id>")
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	code, err := c.deps.Dashboard.QRCode(ctx, id)
	if err != nil {
		return err
	}

	c.notice = fmt.Sprintf("QR code saved to %s\nImage: %s\nLink: %s", code.Path, code.ImageURL, code.Link)

	return nil
}

func (c *Console) edit(ctx context.Context, args []string) error {
	if err := c.on(shell.PageAdmin); err != nil {
		return err
	}

	if len(args) != 1 {
		return usage("edit <survey id>")
	}

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	return c.navigate(ctx, "/edit-survey/"+strconv.Itoa(id))
}

// currentDraft возвращает черновик страницы создания или правки.
func (c *Console) currentDraft() (*admin.Draft, error) {
	if err := c.on(shell.PageCreateSurvey, shell.PageEditSurvey); err != nil {
		return nil, err
	}

	if c.draft == nil {
		return nil, errNoDraft
	}

	return c.draft, nil
}

func (c *Console) title(_ context.Context, args []string) error {
	draft, err := c.currentDraft()
	if err != nil {
		return err
	}

	draft.SetTitle(strings.Join(args, " "))

	return nil
}

func (c *Console) description(_ context.Context, args []string) error {
	draft, err := c.currentDraft()
	if err != nil {
		return err
	}

	draft.SetDescription(strings.Join(args, " "))

	return nil
}

func (c *Console) addQuestion(ctx context.Context, args []string) error {
	q, err := parseQuestion(args)
	if err != nil {
		return err
	}

	if c.page != nil && c.page.Route.Page == shell.PageAdmin {
		selected := c.deps.Dashboard.View().Selected
		if selected == nil {
			return admin.ErrNoSelection
		}

		question, err := c.deps.Dashboard.AddQuestion(ctx, selected.ID, q)
		if err != nil {
			return c.dashboardFailed(ctx, err)
		}

		c.notice = fmt.Sprintf("Question %d added to %q", question.ID, selected.Title)

		return nil
	}

	draft, err := c.currentDraft()
	if err != nil {
		return err
	}

	if err = draft.AddQuestion(q); err != nil {
		if draft.View().Message != "" {
			return nil
		}

		return err
	}

	return nil
}

// parseQuestion разбирает "<type> <required|optional> <text...> [options=A,B,C]".
func parseQuestion(args []string) (models.QuestionDraft, error) {
	const text = "add-question <Text|Rating|MultipleChoice> <required|optional> <text> [options=A,B,C]"

	if len(args) < 2 {
		return models.QuestionDraft{}, usage(text)
	}

	var q models.QuestionDraft

	switch strings.ToLower(args[0]) {
	case "text":
		q.QuestionType = models.QuestionText
	case "rating":
		q.QuestionType = models.QuestionRating
	case "multiplechoice", "multiple-choice", "choice":
		q.QuestionType = models.QuestionMultipleChoice
	default:
		return models.QuestionDraft{}, usage(text)
	}

	switch strings.ToLower(args[1]) {
	case "required":
		q.IsRequired = true
	case "optional":
	default:
		return models.QuestionDraft{}, usage(text)
	}

	rest := args[2:]
	if n := len(rest); n > 0 && strings.HasPrefix(strings.ToLower(rest[n-1]), "options=") {
		options := rest[n-1][len("options="):]
		q.Options = &options
		rest = rest[:n-1]
	}

	q.QuestionText = strings.Join(rest, " ")

	return q, nil
}

func (c *Console) removeQuestion(_ context.Context, args []string) error {
	draft, err := c.currentDraft()
	if err != nil {
		return err
	}

	if len(args) != 1 {
		return usage("remove-question <number>")
	}

	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%q is not a question number", args[0])
	}

	return draft.RemoveQuestion(n - 1)
}

func (c *Console) save(ctx context.Context, _ []string) error {
	draft, err := c.currentDraft()
	if err != nil {
		return err
	}

	_, err = draft.Save(ctx)
	if err != nil {
		if errors.Is(err, admin.ErrSessionExpired) {
			return c.dashboardFailed(ctx, err)
		}

		// Причина уже в сообщении черновика.
		return nil
	}

	if draft.View().EditID != 0 {
		if err = c.navigate(ctx, shell.PathAdmin); err != nil {
			return err
		}

		c.notice = admin.MsgSurveyUpdated
	}

	return nil
}

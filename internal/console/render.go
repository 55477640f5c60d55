package console

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/letsssgooo/surveySite/internal/admin"
	"github.com/letsssgooo/surveySite/internal/catalog"
	"github.com/letsssgooo/surveySite/internal/domain/models"
	"github.com/letsssgooo/surveySite/internal/events/sender"
	"github.com/letsssgooo/surveySite/internal/shell"
	"github.com/letsssgooo/surveySite/internal/survey"
)

const consentLabel = "I consent to the processing and storage of my response for analysis."

// printer запоминает первую ошибку вывода, чтобы не проверять каждую строку.
type printer struct {
	s   sender.Sender
	err error
}

func (p *printer) line(style sender.Style, text string) {
	if p.err != nil {
		return
	}

	p.err = p.s.Message(style, text)
}

func (p *printer) linef(style sender.Style, format string, args ...any) {
	p.line(style, fmt.Sprintf(format, args...))
}

func (p *printer) table(header []string, rows [][]string) {
	if p.err != nil {
		return
	}

	p.err = p.s.Table(header, rows)
}

// render выводит навигацию, текущую страницу и итог последней команды.
func (c *Console) render(ctx context.Context) error {
	if c.page == nil {
		return nil
	}

	chrome, err := c.deps.Shell.Chrome(ctx, c.page.Route)
	if err != nil {
		return err
	}

	p := &printer{s: c.sender}

	p.line(sender.StylePlain, "")
	if chrome.Visible {
		renderChrome(p, chrome)
	}

	switch c.page.Route.Page {
	case shell.PageHome:
		p.line(sender.StylePlain, msgHome)
	case shell.PageAbout:
		p.line(sender.StylePlain, msgAbout)
	case shell.PageServices:
		p.line(sender.StylePlain, msgServices)
	case shell.PageLogin:
		p.line(sender.StyleTitle, "Login")
		p.line(sender.StylePlain, msgLoginPage)
	case shell.PageAdminLogin:
		p.line(sender.StyleTitle, "Admin Login")
		p.line(sender.StylePlain, msgAdminLoginPage)
	case shell.PageRegister:
		p.line(sender.StyleTitle, "Register")
		p.line(sender.StylePlain, msgRegisterPage)
	case shell.PageSurveys:
		c.renderCatalog(p)
	case shell.PageSurvey:
		renderSurvey(p, c.deps.Taker.View())
	case shell.PageAdmin:
		c.renderDashboard(p)
	case shell.PageCreateSurvey, shell.PageEditSurvey:
		c.renderDraft(p)
	}

	if c.notice != "" {
		p.line(sender.StyleSuccess, c.notice)
	}

	if c.problem != "" {
		p.line(sender.StyleError, c.problem)
	}

	return p.err
}

func renderChrome(p *printer, chrome shell.Chrome) {
	links := make([]string, 0, len(chrome.Links))
	for _, l := range chrome.Links {
		links = append(links, l.Title+" "+l.Path)
	}

	p.line(sender.StyleTitle, chrome.Brand)
	p.line(sender.StyleMuted, strings.Join(links, " | "))

	switch {
	case chrome.ShowLogout:
		p.linef(sender.StyleMuted, "Signed in as %s (logout)", chrome.Username)
	case chrome.ShowLogin:
		p.line(sender.StyleMuted, "Not signed in (open /login)")
	}

	p.line(sender.StylePlain, "")
}

func (c *Console) renderCatalog(p *printer) {
	p.line(sender.StyleTitle, "Available Surveys")

	if c.entries == nil {
		return
	}

	if len(c.entries) == 0 {
		p.line(sender.StyleMuted, catalog.MsgNoSurveys)
		return
	}

	rows := make([][]string, 0, len(c.entries))
	for _, e := range c.entries {
		rows = append(rows, []string{
			strconv.Itoa(e.Survey.ID),
			e.Survey.Title,
			e.Survey.Description,
			e.Badge(),
			e.Action + " " + e.Link,
		})
	}

	p.table([]string{"ID", "Title", "Description", "Status", "Action"}, rows)
}

func renderSurvey(p *printer, view survey.View) {
	if view.Shared {
		p.line(sender.StyleHighlight, msgShared)
	}

	switch view.State {
	case survey.StateLoading:
		p.line(sender.StyleMuted, "Loading survey...")
		return
	case survey.StateError:
		p.line(sender.StyleError, view.Message)
		return
	}

	if view.Survey != nil {
		p.line(sender.StyleTitle, view.Survey.Title)
		if view.Survey.Description != "" {
			p.line(sender.StylePlain, view.Survey.Description)
		}
	}

	switch view.State {
	case survey.StateNoQuestions:
		p.line(sender.StyleMuted, msgNoQuestions)

	case survey.StateReview:
		p.line(sender.StyleHighlight, msgReview)
		for _, q := range view.Questions {
			p.linef(sender.StylePlain, "[%d] %s", q.ID, q.QuestionText)
			p.linef(sender.StyleMuted, "    %s", view.ReviewAnswers[q.ID])
		}

	case survey.StateAnswering, survey.StateSubmitting:
		for _, q := range view.Questions {
			renderQuestion(p, q, view)
		}

		mark := " "
		if view.Consent {
			mark = "x"
		}

		p.linef(sender.StylePlain, "[%s] %s", mark, consentLabel)
		p.linef(sender.StyleMuted, "Progress: %d%%", view.Progress)

		if view.State == survey.StateSubmitting {
			p.line(sender.StyleMuted, "Submitting...")
		}

		if view.Message != "" {
			p.line(sender.StyleError, view.Message)
		}
	}
}

func renderQuestion(p *printer, q models.Question, view survey.View) {
	style := sender.StylePlain
	if view.IsInvalid(q.ID) {
		style = sender.StyleError
	}

	required := ""
	if q.IsRequired {
		required = " *"
	}

	p.linef(style, "[%d] %s%s", q.ID, q.QuestionText, required)

	switch q.QuestionType {
	case models.QuestionRating:
		p.linef(sender.StyleMuted, "    rating %d-%d", models.RatingMin, models.RatingMax)
	case models.QuestionMultipleChoice:
		choices := q.Choices()
		numbered := make([]string, 0, len(choices))
		for i, choice := range choices {
			numbered = append(numbered, fmt.Sprintf("%d) %s", i+1, choice))
		}
		p.line(sender.StyleMuted, "    "+strings.Join(numbered, "  "))
	}

	if value, ok := view.Answers[q.ID]; ok {
		p.line(sender.StyleHighlight, "    > "+value.Display())
	}
}

func (c *Console) renderDashboard(p *printer) {
	d := c.deps.Dashboard
	view := d.View()

	p.line(sender.StyleTitle, "Admin Dashboard")

	surveys := make([][]string, 0, len(view.Surveys))
	for _, s := range view.Surveys {
		surveys = append(surveys, []string{strconv.Itoa(s.ID), s.Title, strconv.Itoa(len(s.Questions))})
	}

	if len(surveys) == 0 {
		p.line(sender.StyleMuted, "No surveys yet.")
	} else {
		p.table([]string{"ID", "Title", "Questions"}, surveys)
	}

	if view.Selected != nil {
		p.line(sender.StylePlain, "")
		p.linef(sender.StyleTitle, "Responses for %s", view.Selected.Title)

		if stats, ok := d.Stats(); ok {
			p.linef(sender.StylePlain, "Total responses: %s  Average: %s  Highest: %s  Lowest: %s",
				stats.Total, stats.Average, stats.Highest, stats.Lowest)
			p.line(sender.StylePlain, strings.TrimRight(d.Chart(), "\n"))
		}

		if view.StartDate != "" {
			p.linef(sender.StyleMuted, "Dates: %s .. %s", view.StartDate, view.EndDate)
		}

		if view.SearchText != "" {
			p.linef(sender.StyleMuted, "Search: %q", view.SearchText)
		}

		p.linef(sender.StyleMuted, "Showing %d of %d", len(view.Rows), view.Total)
		p.table([]string{"ID", "User", "Submitted", "Consent"}, c.responseRows(view.Rows))
	}

	if view.Pending != nil {
		msg := msgConfirmDelete
		if view.Pending.Kind == admin.PendingResponse {
			msg = msgConfirmDeleteResponse
		}
		p.linef(sender.StyleHighlight, "%s (#%d)", msg, view.Pending.ID)
	}

	if view.Message != "" {
		p.line(sender.StyleHighlight, view.Message)
	}
}

func (c *Console) responseRows(responses []models.Response) [][]string {
	now := c.now()

	rows := make([][]string, 0, len(responses))
	for _, r := range responses {
		submitted := "-"
		if !r.SubmittedAt.IsZero() {
			submitted = humanize.RelTime(r.SubmittedAt.Time, now, "ago", "from now")
		}

		consent := "No"
		if r.ConsentGiven {
			consent = "Yes"
		}

		rows = append(rows, []string{strconv.Itoa(r.ID), r.DisplayUsername(), submitted, consent})
	}

	return rows
}

func (c *Console) renderDraft(p *printer) {
	if c.draft == nil {
		p.line(sender.StyleTitle, "Edit Survey")
		return
	}

	view := c.draft.View()

	if view.EditID != 0 {
		p.line(sender.StyleTitle, "Edit Survey")
	} else {
		p.line(sender.StyleTitle, "Create a New Survey")
	}

	p.linef(sender.StylePlain, "Title: %s", view.Title)
	p.linef(sender.StylePlain, "Description: %s", view.Description)

	if len(view.Questions) == 0 {
		p.line(sender.StyleMuted, "No questions yet.")
	}

	for i, q := range view.Questions {
		required := "optional"
		if q.IsRequired {
			required = "required"
		}

		p.linef(sender.StylePlain, "%d. %s (%s, %s)", i+1, q.QuestionText, q.QuestionType, required)

		if q.Options != nil && *q.Options != "" {
			p.linef(sender.StyleMuted, "   options: %s", *q.Options)
		}
	}

	if view.Message != "" {
		style := sender.StyleError
		if slices.Contains([]string{admin.MsgSurveyCreated, admin.MsgSurveyUpdated}, view.Message) {
			style = sender.StyleSuccess
		}
		p.line(style, view.Message)
	}
}

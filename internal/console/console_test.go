package console

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsssgooo/surveySite/internal/admin"
	"github.com/letsssgooo/surveySite/internal/auth"
	"github.com/letsssgooo/surveySite/internal/catalog"
	"github.com/letsssgooo/surveySite/internal/completion"
	"github.com/letsssgooo/surveySite/internal/domain/models"
	"github.com/letsssgooo/surveySite/internal/events/fetcher"
	"github.com/letsssgooo/surveySite/internal/events/sender"
	"github.com/letsssgooo/surveySite/internal/session"
	"github.com/letsssgooo/surveySite/internal/shell"
	"github.com/letsssgooo/surveySite/internal/storage"
	"github.com/letsssgooo/surveySite/internal/survey"
	"github.com/letsssgooo/surveySite/internal/testutil"
)

type harness struct {
	api       *testutil.FakeAPI
	session   *session.Session
	deps      Deps
	exportDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	api := testutil.NewFakeAPI(t)
	sess := session.New(storage.NewMemoryStorage(), storage.NewMemoryStorage())
	c := api.Client(sess)
	resolver := completion.NewResolver(c, sess)
	exportDir := t.TempDir()

	api.AddSurvey(models.Survey{
		ID:    1,
		Title: "Feedback",
		Questions: []models.Question{
			{ID: 11, QuestionText: "Rate us", QuestionType: models.QuestionRating, IsRequired: true},
			{ID: 12, QuestionText: "Anything else?", QuestionType: models.QuestionText},
		},
	})

	api.AddUser("annie1", "secret1", models.RoleUser)
	api.AddUser("rootadmin", "secret1", models.RoleAdmin)

	return &harness{
		api:     api,
		session: sess,
		deps: Deps{
			Session:   sess,
			Shell:     shell.New(sess),
			Auth:      auth.NewService(c, sess),
			Taker:     survey.NewTaker(c, sess, resolver),
			Catalog:   catalog.New(c, sess, resolver),
			Dashboard: admin.NewDashboard(c, sess, "http://surveys.test", exportDir),
		},
		exportDir: exportDir,
	}
}

// run выполняет сценарий из команд, по одной на строку, и возвращает вывод.
func (h *harness) run(t *testing.T, start string, script ...string) string {
	t.Helper()

	var out bytes.Buffer

	input := strings.NewReader(strings.Join(script, "\n") + "\n")
	c := New(fetcher.NewLineFetcher(input, nil), sender.NewConsoleSender(&out, false), h.deps)

	require.NoError(t, c.Run(context.Background(), start))

	return out.String()
}

func TestConsole_GuestSeesLoginPrompt(t *testing.T) {
	h := newHarness(t)

	out := h.run(t, "/", "open /surveys", "quit")

	assert.Contains(t, out, shell.SiteBrand)
	assert.Contains(t, out, "Home / | About /about | Services /services | Surveys /surveys")
	assert.Contains(t, out, catalog.MsgLoginRequired)
	assert.Contains(t, out, msgBye)
	assert.Equal(t, 0, h.api.Count(http.MethodGet, "/api/surveys"))
}

func TestConsole_CommandErrors(t *testing.T) {
	h := newHarness(t)

	testCases := []struct {
		name    string
		command string
		want    string
	}{
		{name: "unknown command", command: "frobnicate", want: msgUnknownCommand},
		{name: "survey command on home page", command: "submit", want: msgNotHere},
		{name: "admin command on home page", command: "select 1", want: msgNotHere},
		{name: "usage", command: "login annie1", want: "usage: login <username> <password>"},
		{name: "wrong password", command: "login annie1 nope", want: auth.MsgInvalidCredentials},
		{name: "unbalanced quote", command: `title "Pets`, want: fetcher.ErrUnbalancedQuote.Error()},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := h.run(t, "/", tc.command)
			assert.Contains(t, out, tc.want)
		})
	}
}

func TestConsole_TakeSurvey(t *testing.T) {
	h := newHarness(t)

	out := h.run(t, "/login",
		"login annie1 secret1",
		"open /surveys",
		"take 1",
		"submit",
		"answer 11 8",
		"consent yes",
		"submit",
	)

	assert.Contains(t, out, "Logged in as annie1")
	assert.Contains(t, out, "Not Completed")
	assert.Contains(t, out, survey.MsgRequired)
	assert.Contains(t, out, survey.MsgConsent)
	assert.Contains(t, out, "    > 8")
	assert.Contains(t, out, msgSubmitted)
	assert.Contains(t, out, "View /survey/1")

	responses := h.api.Responses(1)
	require.Len(t, responses, 1)
	assert.Equal(t, "annie1", responses[0].Username)
	require.Len(t, responses[0].Answers, 2)
	require.NotNil(t, responses[0].Answers[0].RatingValue)
	assert.Equal(t, 8, *responses[0].Answers[0].RatingValue)
}

func TestConsole_ReviewAndRetake(t *testing.T) {
	h := newHarness(t)

	rating := 9
	h.api.SetAnswers("annie1", 1, []models.Answer{{QuestionID: 11, RatingValue: &rating}})

	out := h.run(t, "/login",
		"login annie1 secret1",
		"open /survey/1",
		"retake",
	)

	assert.Contains(t, out, msgReview)
	assert.Contains(t, out, "    9")
	assert.Contains(t, out, "Progress: 0%")
}

func TestConsole_AdminOnlyPages(t *testing.T) {
	h := newHarness(t)

	out := h.run(t, "/admin", "login annie1 secret1", "open /create-survey")

	assert.NotContains(t, out, "Admin Dashboard")
	assert.NotContains(t, out, "Create a New Survey")
	assert.Contains(t, out, msgLoginPage)
}

func TestConsole_AdminDashboard(t *testing.T) {
	h := newHarness(t)

	h.api.AddResponse(1, models.Response{ID: 501, Username: "annie1", ConsentGiven: true})
	h.api.AddResponse(1, models.Response{ID: 502, Username: "bobby22", ConsentGiven: true})

	out := h.run(t, "/admin-login",
		"admin-login rootadmin secret1",
		"select 1",
		"search ANN",
		"export csv",
		"delete-response 502",
		"confirm",
		"link 1",
	)

	assert.Contains(t, out, shell.AdminBrand)
	assert.Contains(t, out, "Admin Dashboard")
	assert.Contains(t, out, "Responses for Feedback")
	assert.Contains(t, out, "Showing 1 of 2")
	assert.Contains(t, out, "Saved "+filepath.Join(h.exportDir, "Feedback_Responses.csv"))
	assert.Contains(t, out, admin.MsgDeleted)
	assert.Contains(t, out, "Share link: http://surveys.test/survey/1?share=")

	_, err := os.Stat(filepath.Join(h.exportDir, "Feedback_Responses.csv"))
	require.NoError(t, err)

	assert.Equal(t, 1, h.api.Count(http.MethodDelete, "/api/surveyresponses/502"))
	require.Len(t, h.api.Responses(1), 1)
}

func TestConsole_AdminSessionExpired(t *testing.T) {
	h := newHarness(t)

	h.api.Fail(http.MethodGet, "/api/surveys/1/responses", http.StatusUnauthorized, "")

	out := h.run(t, "/admin-login", "admin-login rootadmin secret1", "select 1")

	assert.Contains(t, out, admin.MsgSessionExpired)
	assert.Contains(t, out, msgLoginPage)

	identity, err := h.session.Identity(context.Background())
	require.NoError(t, err)
	assert.False(t, identity.Authenticated())
}

func TestConsole_CreateSurvey(t *testing.T) {
	h := newHarness(t)

	out := h.run(t, "/admin-login",
		"admin-login rootadmin secret1",
		"open /create-survey",
		"save",
		`title "Pets"`,
		`add-question MultipleChoice required "Cat or dog?" options=Cat,Dog`,
		"add-question Text optional Why",
		"remove-question 2",
		"save",
	)

	assert.Contains(t, out, "Create a New Survey")
	assert.Contains(t, out, admin.MsgDraftIncomplete)
	assert.Contains(t, out, "1. Cat or dog? (MultipleChoice, required)")
	assert.Contains(t, out, "   options: Cat,Dog")
	assert.Contains(t, out, admin.MsgSurveyCreated)

	req, ok := h.api.Last(http.MethodPost, "/api/surveys")
	require.True(t, ok)
	assert.Contains(t, string(req.Body), `"title":"Pets"`)
	assert.Contains(t, string(req.Body), `"createdBy":"rootadmin"`)
	assert.NotContains(t, string(req.Body), "Why")
}

func TestConsole_Register(t *testing.T) {
	h := newHarness(t)

	out := h.run(t, "/register",
		"register first=Carla last=Jones dob=2000-05-01 email=carla@example.com username=carla3 password=secret1 confirm=secret1",
		"login carla3 secret1",
	)

	assert.Contains(t, out, auth.MsgRegistered)
	assert.Contains(t, out, "Logged in as carla3")
}

func TestConsole_ExitShare(t *testing.T) {
	h := newHarness(t)

	ctx := context.Background()
	require.NoError(t, h.session.SetActiveShare(ctx, models.ShareSession{SurveyID: 1, Share: "abc"}))

	out := h.run(t, "/about", "exit-share", "open /about")

	assert.Contains(t, out, msgAbout)

	active, err := h.session.ActiveShare(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestParseQuestion(t *testing.T) {
	options := "Red,Blue"

	testCases := []struct {
		name    string
		args    []string
		want    models.QuestionDraft
		wantErr bool
	}{
		{
			name: "text with several words",
			args: []string{"text", "required", "What", "is", "new?"},
			want: models.QuestionDraft{QuestionText: "What is new?", QuestionType: models.QuestionText, IsRequired: true},
		},
		{
			name: "multiple choice with options",
			args: []string{"MultipleChoice", "optional", "Colour", "options=Red,Blue"},
			want: models.QuestionDraft{QuestionText: "Colour", QuestionType: models.QuestionMultipleChoice, Options: &options},
		},
		{
			name: "rating",
			args: []string{"Rating", "optional", "Score"},
			want: models.QuestionDraft{QuestionText: "Score", QuestionType: models.QuestionRating},
		},
		{name: "unknown type", args: []string{"essay", "required", "x"}, wantErr: true},
		{name: "unknown flag", args: []string{"text", "maybe", "x"}, wantErr: true},
		{name: "too short", args: []string{"text"}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseQuestion(tc.args)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

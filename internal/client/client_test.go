package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsssgooo/surveySite/internal/client"
	"github.com/letsssgooo/surveySite/internal/domain/models"
	"github.com/letsssgooo/surveySite/internal/testutil"
)

func staticToken(token string) client.TokenSource {
	return client.TokenFunc(func(context.Context) string { return token })
}

func TestHTTPClient_BearerHeader(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewFakeAPI(t)
	api.AddSurvey(models.Survey{ID: 1, Title: "Coffee"})

	testCases := []struct {
		name   string
		token  string
		header string
	}{
		{name: "anonymous", token: "", header: ""},
		{name: "signed in", token: "tok-ann", header: "Bearer tok-ann"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := api.Client(staticToken(tc.token))

			surveys, err := c.ListSurveys(ctx)
			require.NoError(t, err)
			require.Len(t, surveys, 1)

			req, ok := api.Last(http.MethodGet, "/api/surveys")
			require.True(t, ok)
			assert.Equal(t, tc.header, req.Header.Get("Authorization"))
			assert.Equal(t, "application/json", req.Header.Get("Accept"))
		})
	}
}

func TestHTTPClient_ShareKey(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewFakeAPI(t)
	api.AddSurvey(models.Survey{ID: 7, Title: "Private"})
	api.RequireShareKey(7, "abc")

	c := api.Client(nil)

	_, err := c.GetSurvey(ctx, 7, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrForbidden)

	survey, err := c.GetSurvey(ctx, 7, "abc")
	require.NoError(t, err)
	assert.Equal(t, "Private", survey.Title)

	req, ok := api.Last(http.MethodGet, "/api/surveys/7")
	require.True(t, ok)
	assert.Equal(t, "abc", req.Query.Get("share"))
	assert.Equal(t, "abc", req.Header.Get(client.ShareKeyHeader))
}

func TestHTTPClient_SubmitResponse(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewFakeAPI(t)
	api.AddSurvey(models.Survey{ID: 3})

	rating := 8
	resp := models.SurveyResponse{
		Username:     "ann",
		ConsentGiven: true,
		Answers: []models.Answer{
			{QuestionID: 1, RatingValue: &rating},
		},
	}

	require.NoError(t, api.Client(nil).SubmitResponse(ctx, 3, resp, "key"))

	req, ok := api.Last(http.MethodPost, "/api/surveys/3/responses")
	require.True(t, ok)
	assert.Equal(t, "key", req.Query.Get("share"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, "ann", body["username"])
	assert.Equal(t, true, body["consentGiven"])

	stored := api.Responses(3)
	require.Len(t, stored, 1)
	assert.Equal(t, 8, *stored[0].Answers[0].RatingValue)
}

func TestHTTPClient_APIErrors(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewFakeAPI(t)
	c := api.Client(nil)

	testCases := []struct {
		name    string
		status  int
		body    string
		target  error
		message string
	}{
		{
			name:    "unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"message":"Token expired"}`,
			target:  client.ErrUnauthorized,
			message: "Token expired",
		},
		{
			name:    "forbidden",
			status:  http.StatusForbidden,
			body:    `{"error":"Admins only"}`,
			target:  client.ErrForbidden,
			message: "Admins only",
		},
		{
			name:    "not found",
			status:  http.StatusNotFound,
			body:    "nothing here",
			target:  client.ErrNotFound,
			message: "nothing here",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api.Fail(http.MethodGet, "/api/surveys", tc.status, tc.body)
			defer api.Recover(http.MethodGet, "/api/surveys")

			_, err := c.ListSurveys(ctx)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.target)
			assert.Equal(t, tc.message, client.ServerMessage(err))
			assert.False(t, client.IsTransport(err))
		})
	}
}

func TestHTTPClient_TransportError(t *testing.T) {
	c := client.NewHTTPClient("http://127.0.0.1:1", nil)

	_, err := c.ListSurveys(context.Background())
	require.Error(t, err)
	assert.True(t, client.IsTransport(err))
	assert.Empty(t, client.ServerMessage(err))
}

func TestHTTPClient_Login(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewFakeAPI(t)
	api.AddUser("admin1", "secret1", models.RoleAdmin)
	c := api.Client(nil)

	result, err := c.Login(ctx, client.Credentials{Username: "admin1", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "tok-admin1", result.Token)
	assert.Equal(t, models.RoleAdmin, result.Role)

	_, err = c.Login(ctx, client.Credentials{Username: "admin1", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", client.ServerMessage(err))
}

func TestHTTPClient_CompletedSurveysFallback(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewFakeAPI(t)
	token := api.AddUser("annie1", "secret1", models.RoleUser)
	api.SetAnswers("annie1", 4, []models.Answer{{QuestionID: 1}})
	api.SetAnswers("annie1", 2, []models.Answer{{QuestionID: 1}})

	c := api.Client(staticToken(token))

	ids, err := c.CompletedSurveys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, ids)
	assert.Equal(t, 0, api.Count(http.MethodGet, "/api/surveys/completed"))

	api.DisableCompletedEndpoint("/api/users/me/completed-surveys")

	ids, err = c.CompletedSurveys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, ids)
	assert.Equal(t, 1, api.Count(http.MethodGet, "/api/surveys/completed"))

	api.DisableCompletedEndpoint("/api/surveys/completed")

	_, err = c.CompletedSurveys(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrNotFound))
}

func TestHTTPClient_Authoring(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewFakeAPI(t)
	token := api.AddUser("admin1", "secret1", models.RoleAdmin)
	c := api.Client(staticToken(token))

	options := "Red, Green"
	survey, err := c.CreateSurvey(ctx, models.SurveyDraft{
		Title:     "Colors",
		CreatedBy: "admin1",
		Questions: []models.QuestionDraft{
			{QuestionText: "Pick", QuestionType: models.QuestionMultipleChoice, Options: &options, IsRequired: true},
		},
	})
	require.NoError(t, err)
	require.Len(t, survey.Questions, 1)
	assert.Equal(t, []string{"Red", "Green"}, survey.Questions[0].Choices())

	question, err := c.AddQuestion(ctx, survey.ID, models.QuestionDraft{
		QuestionText: "Why?",
		QuestionType: models.QuestionText,
	})
	require.NoError(t, err)
	assert.NotZero(t, question.ID)

	stored, ok := api.Survey(survey.ID)
	require.True(t, ok)
	assert.Len(t, stored.Questions, 2)

	require.NoError(t, c.DeleteSurvey(ctx, survey.ID))
	_, err = c.GetSurvey(ctx, survey.ID, "")
	assert.ErrorIs(t, err, client.ErrNotFound)
}

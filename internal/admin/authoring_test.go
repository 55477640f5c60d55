package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsssgooo/surveySite/internal/domain/models"
)

func strPtr(s string) *string {
	return &s
}

func TestDraft_AddQuestionValidation(t *testing.T) {
	_, _, d := setup(t)
	draft := d.NewDraft()

	testCases := []struct {
		name     string
		question models.QuestionDraft
		wantErr  bool
	}{
		{name: "blank text", question: models.QuestionDraft{QuestionText: "  ", QuestionType: models.QuestionText}, wantErr: true},
		{name: "unknown type", question: models.QuestionDraft{QuestionText: "Why?", QuestionType: "Essay"}, wantErr: true},
		{name: "choice without options", question: models.QuestionDraft{QuestionText: "Pick", QuestionType: models.QuestionMultipleChoice}, wantErr: true},
		{name: "text", question: models.QuestionDraft{QuestionText: " Why? ", QuestionType: models.QuestionText, Options: strPtr("x")}},
		{name: "choice", question: models.QuestionDraft{QuestionText: "Pick", QuestionType: models.QuestionMultipleChoice, Options: strPtr("A, B")}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := draft.AddQuestion(tc.question)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}

			require.NoError(t, err)
		})
	}

	view := draft.View()
	require.Len(t, view.Questions, 2)
	assert.Equal(t, "Why?", view.Questions[0].QuestionText)
	assert.Nil(t, view.Questions[0].Options)
	assert.Equal(t, "A, B", *view.Questions[1].Options)

	require.NoError(t, draft.RemoveQuestion(0))
	assert.ErrorIs(t, draft.RemoveQuestion(5), ErrValidation)
	assert.Len(t, draft.View().Questions, 1)
}

func TestDraft_SaveNewSurvey(t *testing.T) {
	ctx := context.Background()
	api, sess, d := setup(t)
	signInAdmin(t, api, sess)

	draft := d.NewDraft()

	_, err := draft.Save(ctx)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, MsgDraftIncomplete, draft.View().Message)

	draft.SetTitle("Breakfast")
	_, err = draft.Save(ctx)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, api.Count(http.MethodPost, "/api/surveys"))

	draft.SetDescription("Morning food")
	require.NoError(t, draft.AddQuestion(models.QuestionDraft{
		QuestionText: "How hungry?",
		QuestionType: models.QuestionRating,
		IsRequired:   true,
	}))

	id, err := draft.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, MsgSurveyCreated, draft.View().Message)
	assert.Empty(t, draft.View().Questions)

	req, ok := api.Last(http.MethodPost, "/api/surveys")
	require.True(t, ok)

	var body models.SurveyDraft
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, "rootadmin", body.CreatedBy)
	assert.Equal(t, "Morning food", body.Description)
	require.Len(t, body.Questions, 1)
	assert.True(t, body.Questions[0].IsRequired)

	survey, found := api.Survey(id)
	require.True(t, found)
	assert.Equal(t, "Breakfast", survey.Title)
}

func TestDraft_EditSurvey(t *testing.T) {
	ctx := context.Background()
	api, sess, d := setup(t)
	signInAdmin(t, api, sess)

	draft, err := d.EditDraft(ctx, 1)
	require.NoError(t, err)

	view := draft.View()
	assert.Equal(t, 1, view.EditID)
	assert.Equal(t, "Lunch", view.Title)
	require.Len(t, view.Questions, 1)
	assert.Equal(t, 10, view.Questions[0].ID)

	assert.ErrorIs(t, draft.AddQuestion(models.QuestionDraft{QuestionText: "New", QuestionType: models.QuestionText}), ErrValidation)

	draft.SetTitle(" ")
	_, err = draft.Save(ctx)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, MsgTitleRequired, draft.View().Message)

	draft.SetTitle("Lunch at work")
	id, err := draft.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	assert.Equal(t, MsgSurveyUpdated, draft.View().Message)

	survey, found := api.Survey(1)
	require.True(t, found)
	assert.Equal(t, "Lunch at work", survey.Title)
	require.Len(t, survey.Questions, 1)
	assert.Equal(t, 10, survey.Questions[0].ID)

	_, err = d.EditDraft(ctx, 404)
	require.Error(t, err)
	assert.Equal(t, MsgSurveyLoadFailed, d.View().Message)
}

func TestDashboard_AddQuestionToSurvey(t *testing.T) {
	ctx := context.Background()
	api, sess, d := setup(t)
	signInAdmin(t, api, sess)

	require.NoError(t, d.Load(ctx))
	require.NoError(t, d.Select(ctx, 1))

	_, err := d.AddQuestion(ctx, 1, models.QuestionDraft{QuestionType: models.QuestionText})
	assert.ErrorIs(t, err, ErrValidation)

	q, err := d.AddQuestion(ctx, 1, models.QuestionDraft{
		QuestionText: "Dessert?",
		QuestionType: models.QuestionMultipleChoice,
		Options:      strPtr("Cake,Fruit"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Cake,Fruit", q.Options)

	view := d.View()
	require.Len(t, view.Selected.Questions, 2)
	assert.Equal(t, 1, api.Count(http.MethodPost, "/api/surveys/1/questions"))
}

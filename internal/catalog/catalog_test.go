package catalog

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsssgooo/surveySite/internal/completion"
	"github.com/letsssgooo/surveySite/internal/domain/models"
	"github.com/letsssgooo/surveySite/internal/session"
	"github.com/letsssgooo/surveySite/internal/storage"
	"github.com/letsssgooo/surveySite/internal/testutil"
)

func setup(t *testing.T) (*testutil.FakeAPI, *session.Session, *Catalog) {
	t.Helper()

	api := testutil.NewFakeAPI(t)
	sess := session.New(storage.NewMemoryStorage(), storage.NewMemoryStorage())
	c := api.Client(sess)

	api.AddSurvey(models.Survey{ID: 1, Title: "Coffee", Description: "Morning habits"})
	api.AddSurvey(models.Survey{ID: 2, Title: "Tea"})

	return api, sess, New(c, sess, completion.NewResolver(c, sess))
}

func TestCatalog_GuestNeedsLogin(t *testing.T) {
	api, _, catalog := setup(t)

	_, err := catalog.Load(context.Background())
	assert.ErrorIs(t, err, ErrLoginRequired)
	assert.Equal(t, 0, api.Count(http.MethodGet, "/api/surveys"))
}

func TestCatalog_Badges(t *testing.T) {
	ctx := context.Background()
	api, sess, catalog := setup(t)

	token := api.AddUser("annie1", "secret1", models.RoleUser)
	require.NoError(t, sess.SignIn(ctx, models.Identity{Username: "annie1", Role: models.RoleUser, Token: token}))
	api.SetAnswers("annie1", 2, []models.Answer{{QuestionID: 1}})

	entries, err := catalog.Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Coffee", entries[0].Survey.Title)
	assert.Equal(t, "Not Completed", entries[0].Badge())
	assert.Equal(t, ActionAnswer, entries[0].Action)
	assert.Equal(t, "/survey/1", entries[0].Link)

	assert.Equal(t, "Completed", entries[1].Badge())
	assert.Equal(t, ActionView, entries[1].Action)

	req, ok := api.Last(http.MethodGet, "/api/surveys")
	require.True(t, ok)
	assert.Equal(t, "Bearer "+token, req.Header.Get("Authorization"))
}

func TestCatalog_LocalMarkersWhenServerCannotTell(t *testing.T) {
	ctx := context.Background()
	api, sess, catalog := setup(t)

	token := api.AddUser("annie1", "secret1", models.RoleUser)
	require.NoError(t, sess.SignIn(ctx, models.Identity{Username: "annie1", Token: token}))
	require.NoError(t, sess.MarkCompleted(ctx, 1, "annie1"))
	api.DisableCompletedEndpoint("/api/users/me/completed-surveys")
	api.DisableCompletedEndpoint("/api/surveys/completed")

	entries, err := catalog.Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, completion.Completed, entries[0].Status)
	assert.Equal(t, completion.Unknown, entries[1].Status)
	assert.Equal(t, ActionAnswer, entries[1].Action)
}

func TestCatalog_UnauthorizedSignsOut(t *testing.T) {
	ctx := context.Background()
	api, sess, catalog := setup(t)

	require.NoError(t, sess.SignIn(ctx, models.Identity{Username: "annie1", Token: "stale"}))
	api.Fail(http.MethodGet, "/api/surveys", http.StatusUnauthorized, "")

	_, err := catalog.Load(ctx)
	assert.ErrorIs(t, err, ErrLoginRequired)

	identity, err := sess.Identity(ctx)
	require.NoError(t, err)
	assert.False(t, identity.Authenticated())
}

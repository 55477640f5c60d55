package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsssgooo/surveySite/internal/domain/models"
	"github.com/letsssgooo/surveySite/internal/storage"
)

func newTestSession() (*Session, *storage.MemoryStorage, *storage.MemoryStorage) {
	local := storage.NewMemoryStorage()
	tab := storage.NewMemoryStorage()

	return New(local, tab), local, tab
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ann",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	return token
}

func TestSession_SignInAndOut(t *testing.T) {
	ctx := context.Background()
	s, local, _ := newTestSession()

	var seen []models.Identity
	unsubscribe := s.Subscribe(func(identity models.Identity) {
		seen = append(seen, identity)
	})

	identity := models.Identity{Username: "annie1", Role: models.RoleUser, Token: "opaque"}
	require.NoError(t, s.SignIn(ctx, identity))

	got, err := s.Identity(ctx)
	require.NoError(t, err)
	assert.Equal(t, identity, got)
	assert.Equal(t, "opaque", s.Token(ctx))

	require.NoError(t, s.MarkCompleted(ctx, 4, "annie1"))
	require.NoError(t, s.SaveShareToken(ctx, 4, "tok"))
	require.NoError(t, s.SetActiveShare(ctx, models.ShareSession{SurveyID: 4, Share: "tok"}))

	require.NoError(t, s.SignOut(ctx))

	got, err = s.Identity(ctx)
	require.NoError(t, err)
	assert.False(t, got.Authenticated())

	// отметки и ключи ссылок переживают выход
	done, err := s.IsMarkedCompleted(ctx, 4, "annie1")
	require.NoError(t, err)
	assert.True(t, done)

	token, ok, err := s.ShareToken(ctx, 4)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", token)

	share, err := s.ActiveShare(ctx)
	require.NoError(t, err)
	assert.Nil(t, share)

	_, ok, err = local.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, seen, 2)
	assert.Equal(t, "annie1", seen[0].Username)
	assert.False(t, seen[1].Authenticated())

	unsubscribe()
	require.NoError(t, s.SignIn(ctx, identity))
	assert.Len(t, seen, 2)
}

func TestSession_SignOutDropsSkipReview(t *testing.T) {
	ctx := context.Background()
	s, _, tab := newTestSession()

	require.NoError(t, s.SignIn(ctx, models.Identity{Username: "annie1", Token: "opaque"}))
	require.NoError(t, s.SetSkipReview(ctx, 1))
	require.NoError(t, s.SetSkipReview(ctx, 7))
	require.NoError(t, tab.Set(ctx, "unrelated", "x"))

	require.NoError(t, s.SignOut(ctx))

	keys, err := tab.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"unrelated"}, keys)

	skip, err := s.ConsumeSkipReview(ctx, 1)
	require.NoError(t, err)
	assert.False(t, skip)
}

func TestSession_ExpiredToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name          string
		token         func(t *testing.T) string
		authenticated bool
	}{
		{
			name:          "expired jwt",
			token:         func(t *testing.T) string { return signedToken(t, now.Add(-time.Minute)) },
			authenticated: false,
		},
		{
			name:          "valid jwt",
			token:         func(t *testing.T) string { return signedToken(t, now.Add(time.Hour)) },
			authenticated: true,
		},
		{
			name:          "opaque token",
			token:         func(*testing.T) string { return "not-a-jwt" },
			authenticated: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, _, _ := newTestSession()
			s.now = func() time.Time { return now }

			require.NoError(t, s.SignIn(ctx, models.Identity{Username: "annie1", Token: tc.token(t)}))

			identity, err := s.Identity(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.authenticated, identity.Authenticated())
			assert.Equal(t, tc.authenticated, s.Token(ctx) != "")
		})
	}
}

func TestSession_Completion(t *testing.T) {
	ctx := context.Background()
	s, local, _ := newTestSession()

	require.NoError(t, s.MarkCompleted(ctx, 1, "bob"))

	value, ok, err := local.Get(ctx, "survey_1_bob")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "completed", value)

	done, err := s.IsMarkedCompleted(ctx, 1, "alice")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, s.ClearCompleted(ctx, 1, "bob"))

	done, err = s.IsMarkedCompleted(ctx, 1, "bob")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestSession_SkipReviewIsOneShot(t *testing.T) {
	ctx := context.Background()
	s, _, tab := newTestSession()

	require.NoError(t, s.SetSkipReview(ctx, 9))

	_, ok, err := tab.Get(ctx, "skip_review_9")
	require.NoError(t, err)
	assert.True(t, ok)

	skip, err := s.ConsumeSkipReview(ctx, 9)
	require.NoError(t, err)
	assert.True(t, skip)

	skip, err = s.ConsumeSkipReview(ctx, 9)
	require.NoError(t, err)
	assert.False(t, skip)
}

func TestSession_ActiveShare(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name string
		raw  string
		want *models.ShareSession
	}{
		{name: "numeric id", raw: `{"id":5,"share":"abc"}`, want: &models.ShareSession{SurveyID: 5, Share: "abc"}},
		{name: "string id", raw: `{"id":"5","share":"abc"}`, want: &models.ShareSession{SurveyID: 5, Share: "abc"}},
		{name: "corrupted", raw: `{oops`, want: nil},
		{name: "bad id", raw: `{"id":"x","share":"abc"}`, want: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, _, tab := newTestSession()
			require.NoError(t, tab.Set(ctx, KeyActiveShare, tc.raw))

			share, err := s.ActiveShare(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.want, share)

			if tc.want == nil {
				_, ok, err := tab.Get(ctx, KeyActiveShare)
				require.NoError(t, err)
				assert.False(t, ok)
			}
		})
	}
}

func TestSession_ShareTokens(t *testing.T) {
	ctx := context.Background()
	s, local, _ := newTestSession()

	_, ok, err := s.ShareToken(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveShareToken(ctx, 2, "two"))
	require.NoError(t, s.SaveShareToken(ctx, 3, "three"))

	raw, _, err := local.Get(ctx, KeySurveyShare)
	require.NoError(t, err)
	assert.JSONEq(t, `{"2":"two","3":"three"}`, raw)

	require.NoError(t, local.Set(ctx, KeySurveyShare, "garbage"))

	_, ok, err = s.ShareToken(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

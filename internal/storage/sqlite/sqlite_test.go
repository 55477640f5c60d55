package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "profile", "store.db")

	st, err := Open(ctx, path)
	require.NoError(t, err)

	require.NoError(t, st.Set(ctx, "token", "abc"))
	require.NoError(t, st.Set(ctx, "token", "def"))
	require.NoError(t, st.Set(ctx, "survey_1_bob", "completed"))
	require.NoError(t, st.Close())

	// повторное открытие: данные должны сохраниться
	st, err = Open(ctx, path)
	require.NoError(t, err)
	defer func() {
		_ = st.Close()
	}()

	value, ok, err := st.Get(ctx, "token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "def", value)

	keys, err := st.Keys(ctx, "survey_")
	require.NoError(t, err)
	assert.Equal(t, []string{"survey_1_bob"}, keys)
}

func TestStorage_Delete(t *testing.T) {
	ctx := context.Background()

	st, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer func() {
		_ = st.Close()
	}()

	require.NoError(t, st.Set(ctx, "a", "1"))
	require.NoError(t, st.Set(ctx, "b", "2"))
	require.NoError(t, st.Delete(ctx, "a"))
	require.NoError(t, st.Delete(ctx, "missing"))

	_, ok, err := st.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	keys, err := st.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys)
}

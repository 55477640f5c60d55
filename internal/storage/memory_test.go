package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStorage()

	_, ok, err := st.Get(ctx, "token")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.Set(ctx, "token", "abc"))
	require.NoError(t, st.Set(ctx, "survey_2_bob", "completed"))
	require.NoError(t, st.Set(ctx, "survey_1_bob", "completed"))

	value, ok, err := st.Get(ctx, "token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", value)

	keys, err := st.Keys(ctx, "survey_")
	require.NoError(t, err)
	assert.Equal(t, []string{"survey_1_bob", "survey_2_bob"}, keys)

	require.NoError(t, st.Delete(ctx, "token"))
	require.NoError(t, st.Delete(ctx, "missing"))

	_, ok, _ = st.Get(ctx, "token")
	assert.False(t, ok)

	keys, err = st.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"survey_1_bob", "survey_2_bob"}, keys)
}

package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndListSessions(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.SaveSession(ctx, "u1", "s1"))
	require.NoError(t, store.SaveSession(ctx, "u1", "s2"))
	require.NoError(t, store.SaveSession(ctx, "u2", "s3"))

	// re-saving is a no-op
	require.NoError(t, store.SaveSession(ctx, "u1", "s1"))

	sessions, err := store.Sessions(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	sessions, err = store.Sessions(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s3", sessions[0].SessionId)
}

func TestSaveAndReadMessages(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.SaveMessage(ctx, "u1", "s1", "user", "hello", nil))
	require.NoError(t, store.SaveMessage(ctx, "u1", "s1", "assistant", "hi", nil))
	require.NoError(t, store.SaveMessage(ctx, "u1", "s2", "user", "elsewhere", nil))

	records, err := store.Messages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "user", records[0].Role)
	assert.Equal(t, "hello", records[0].Content)
	assert.NotEmpty(t, records[0].Id)
}

func TestDeleteSession(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.SaveSession(ctx, "u1", "s1"))
	require.NoError(t, store.SaveMessage(ctx, "u1", "s1", "user", "hello", nil))

	require.NoError(t, store.DeleteSession(ctx, "s1"))

	sessions, err := store.Sessions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, sessions)

	records, err := store.Messages(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLastUserContext(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.SaveMessage(ctx, "u1", "s1", "user", "my name is Pat", nil))
	require.NoError(t, store.SaveMessage(ctx, "u1", "s1", "assistant", "Nice to meet you, Pat.", nil))
	require.NoError(t, store.SaveMessage(ctx, "u1", "s1", "user", "what does clause 7 say?", nil))

	uc, err := store.LastUserContext(ctx, "u1")
	require.NoError(t, err)

	// only the user's own messages contribute
	assert.Equal(t, "Pat", uc.Name)
	assert.Contains(t, uc.PreviousContext, "User: my name is Pat")
	assert.Contains(t, uc.PreviousContext, "User: what does clause 7 say?")
	assert.NotContains(t, uc.PreviousContext, "Nice to meet you")
}

func TestLastUserContextUnknownUser(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	uc, err := store.LastUserContext(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, uc.PreviousContext)
	assert.Empty(t, uc.Name)
}

func TestSearchMessages(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.SaveMessage(ctx, "u1", "s1", "user", "apples", []float32{1, 0}))
	require.NoError(t, store.SaveMessage(ctx, "u1", "s1", "user", "oranges", []float32{0, 1}))
	require.NoError(t, store.SaveMessage(ctx, "u2", "s2", "user", "apples too", []float32{1, 0}))

	records, err := store.SearchMessages(ctx, "u1", []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "apples", records[0].Content)

	records, err = store.SearchMessages(ctx, "u1", []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

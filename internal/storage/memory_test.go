package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend-roomreq/internal/models"
)

func TestGetOrCreateInitializesSession(t *testing.T) {
	store := NewMemoryConversations()

	sess, existed := store.GetOrCreate("sess-1")
	require.NotNil(t, sess)
	assert.False(t, existed)
	assert.Equal(t, models.StageConcept, sess.Stage)
	assert.NotNil(t, sess.Messages)
	assert.Empty(t, sess.Messages)

	again, existed := store.GetOrCreate("sess-1")
	assert.True(t, existed, "second join must reuse the session")
	assert.Same(t, sess, again)
}

func TestGetMissingSession(t *testing.T) {
	store := NewMemoryConversations()
	_, ok := store.Get("nope")
	assert.False(t, ok)
}

func TestUpdateRefreshesTimestamp(t *testing.T) {
	store := NewMemoryConversations()
	sess, _ := store.GetOrCreate("sess-1")
	before := sess.UpdatedAt

	time.Sleep(time.Millisecond)
	sess.Messages = append(sess.Messages, models.ChatMessage{ID: "m1", Role: "user", Content: "hi", Timestamp: time.Now()})
	store.Update(sess)

	got, ok := store.Get("sess-1")
	require.True(t, ok)
	assert.True(t, got.UpdatedAt.After(before))
}

func TestCleanupOlderThan(t *testing.T) {
	store := NewMemoryConversations()

	stale, _ := store.GetOrCreate("stale")
	stale.Messages = append(stale.Messages, models.ChatMessage{
		ID: "m1", Role: "user", Content: "old",
		Timestamp: time.Now().Add(-48 * time.Hour),
	})
	store.Update(stale)

	fresh, _ := store.GetOrCreate("fresh")
	fresh.Messages = append(fresh.Messages, models.ChatMessage{
		ID: "m2", Role: "user", Content: "new", Timestamp: time.Now(),
	})
	store.Update(fresh)

	// Empty sessions are never swept, whatever their age.
	store.GetOrCreate("empty")

	removed := store.CleanupOlderThan(24 * time.Hour)
	assert.Equal(t, 1, removed)

	_, ok := store.Get("stale")
	assert.False(t, ok)
	_, ok = store.Get("fresh")
	assert.True(t, ok)
	_, ok = store.Get("empty")
	assert.True(t, ok)
}

func TestCompostSessionsListOrdering(t *testing.T) {
	store := NewMemoryCompostSessions()

	now := time.Now()
	store.Put(&models.CompostingSession{ID: "b", CreatedAt: now})
	store.Put(&models.CompostingSession{ID: "a", CreatedAt: now.Add(-time.Hour)})
	store.Put(&models.CompostingSession{ID: "c", CreatedAt: now.Add(time.Hour)})

	list := store.List()
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)
	assert.Equal(t, "c", list[2].ID)
}

func TestCompostSessionsDelete(t *testing.T) {
	store := NewMemoryCompostSessions()
	store.Put(&models.CompostingSession{ID: "x"})

	assert.True(t, store.Delete("x"))
	assert.False(t, store.Delete("x"))
	_, ok := store.Get("x")
	assert.False(t, ok)
}

package memory

import (
	"ai-salesops-be/pkg/store"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionRepository(t *testing.T) {
	repo := NewSessionRepository(time.Minute)

	conv := store.NewConversation("s-1")
	repo.Save(conv)

	got, ok := repo.Get("s-1")
	assert.True(t, ok)
	assert.Same(t, conv, got)
	assert.Equal(t, 1, repo.Count())

	repo.Delete("s-1")
	_, ok = repo.Get("s-1")
	assert.False(t, ok)
}

func TestSessionRepositoryExpiresIdleSessions(t *testing.T) {
	repo := NewSessionRepository(20 * time.Millisecond)
	repo.Save(store.NewConversation("s-2"))

	time.Sleep(40 * time.Millisecond)

	_, ok := repo.Get("s-2")
	assert.False(t, ok)
}

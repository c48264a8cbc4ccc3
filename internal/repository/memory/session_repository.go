package memory

import (
	"ai-salesops-be/pkg/store"
	"time"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps conversations in memory. Idle sessions expire.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository(idle time.Duration) *SessionRepository {
	if idle <= 0 {
		idle = time.Hour
	}
	c := cache.New(idle, 10*time.Minute)
	return &SessionRepository{
		cache: c,
	}
}

func (r *SessionRepository) Save(session *store.Conversation) {
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(sessionID string) (*store.Conversation, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.Conversation), true
	}
	return nil, false
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}

package storage

import (
	"sort"
	"sync"
	"time"

	"backend-roomreq/internal/models"
)

type MemoryConversations struct {
	mu       sync.RWMutex
	sessions map[string]*models.ConversationSession
}

func NewMemoryConversations() *MemoryConversations {
	return &MemoryConversations{sessions: make(map[string]*models.ConversationSession)}
}

func (m *MemoryConversations) Get(id string) (*models.ConversationSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

func (m *MemoryConversations) GetOrCreate(id string) (*models.ConversationSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		now := time.Now()
		sess = &models.ConversationSession{
			ID:        id,
			Messages:  []models.ChatMessage{},
			Stage:     models.StageConcept,
			CreatedAt: now,
			UpdatedAt: now,
		}
		m.sessions[id] = sess
	}
	return sess, ok
}

func (m *MemoryConversations) Update(sess *models.ConversationSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess.UpdatedAt = time.Now()
	m.sessions[sess.ID] = sess
}

func (m *MemoryConversations) CleanupOlderThan(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, sess := range m.sessions {
		if len(sess.Messages) == 0 {
			continue
		}
		last := sess.Messages[len(sess.Messages)-1]
		if last.Timestamp.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

type MemoryCompostSessions struct {
	mu       sync.RWMutex
	sessions map[string]*models.CompostingSession
}

func NewMemoryCompostSessions() *MemoryCompostSessions {
	return &MemoryCompostSessions{sessions: make(map[string]*models.CompostingSession)}
}

func (m *MemoryCompostSessions) Put(sess *models.CompostingSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess.UpdatedAt = time.Now()
	m.sessions[sess.ID] = sess
}

func (m *MemoryCompostSessions) Get(id string) (*models.CompostingSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

func (m *MemoryCompostSessions) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	return ok
}

func (m *MemoryCompostSessions) List() []*models.CompostingSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.CompostingSession, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

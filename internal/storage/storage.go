// Package storage defines the session stores injected into request
// handlers. The in-memory implementations are the only ones today; a real
// datastore can replace them without touching call sites.
package storage

import (
	"time"

	"backend-roomreq/internal/models"
)

type ConversationStore interface {
	GetOrCreate(id string) (sess *models.ConversationSession, existed bool)
	Get(id string) (*models.ConversationSession, bool)
	Update(sess *models.ConversationSession)
	// CleanupOlderThan removes sessions whose last message is older than
	// maxAge and returns how many were dropped.
	CleanupOlderThan(maxAge time.Duration) int
}

type CompostingStore interface {
	Put(sess *models.CompostingSession)
	Get(id string) (*models.CompostingSession, bool)
	Delete(id string) bool
	List() []*models.CompostingSession
}

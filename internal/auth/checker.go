package auth

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

var _ Checker = (*LoginChecker)(nil)
var _ Checker = (*StaticChecker)(nil)

type Checker interface {
	UserFromToken(ctx context.Context, token string) (uuid.UUID, error)
}

// StaticChecker resolves tokens from an in-memory map, used for local development and tests.
type StaticChecker struct {
	mutex    sync.RWMutex
	sessions map[string]uuid.UUID
}

func NewStaticChecker() *StaticChecker {
	return &StaticChecker{
		sessions: map[string]uuid.UUID{},
	}
}

func (c *StaticChecker) Add(token string, userID uuid.UUID) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.sessions[token] = userID
}

func (c *StaticChecker) UserFromToken(_ context.Context, token string) (uuid.UUID, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	userID, ok := c.sessions[token]
	if !ok {
		return uuid.Nil, ErrSessionNotFound
	}
	return userID, nil
}

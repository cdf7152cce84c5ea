package server

import (
	"sync"

	"github.com/fingate-ai/fingate/pkg/domain"
)

// UserDirectory resolves a caller id to a full user context. The query API
// accepts only an id; role, clearance, and opt-in state come from the
// directory so callers cannot assert their own attributes.
type UserDirectory interface {
	Resolve(id string) (domain.UserContext, bool)
}

// MemoryDirectory is an in-memory UserDirectory safe for concurrent use.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]domain.UserContext
}

// NewMemoryDirectory builds a directory holding the given users.
func NewMemoryDirectory(users ...domain.UserContext) *MemoryDirectory {
	d := &MemoryDirectory{users: make(map[string]domain.UserContext, len(users))}
	for _, user := range users {
		d.users[user.ID] = user
	}
	return d
}

// NewSeededDirectory builds a directory holding the example users that the
// provisioning vocabulary declares: a premium opted-in user with elevated
// clearance and a restricted opted-out user with standard clearance.
func NewSeededDirectory() *MemoryDirectory {
	return NewMemoryDirectory(
		domain.NewUserContext("user@example.com", "premium_user", true, domain.ClearanceElevated, nil),
		domain.NewUserContext("restricted@example.com", "restricted_user", false, domain.ClearanceStandard, nil),
	)
}

// Resolve returns the user context for id, if known.
func (d *MemoryDirectory) Resolve(id string) (domain.UserContext, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	user, ok := d.users[id]
	return user, ok
}

// Replace swaps the full user set, for configuration reloads.
func (d *MemoryDirectory) Replace(users []domain.UserContext) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users = make(map[string]domain.UserContext, len(users))
	for _, user := range users {
		d.users[user.ID] = user
	}
}

// Package presence tracks which connections are live and who they belong
// to. The registry is process-memory only; the durable status column on the
// user row is advisory and reconciled best-effort on join and leave.
package presence

import (
	"context"
	"log"
	"sync"

	"github.com/n3m01726/chattyChat/internal/domain"
)

// Identity maps a live connection back to a durable user.
type Identity struct {
	UserID      int64
	Username    string
	DisplayName string
}

// Name returns the name clients should render: the display name when the
// user set one, the username otherwise.
func (id Identity) Name() string {
	if id.DisplayName != "" {
		return id.DisplayName
	}
	return id.Username
}

// Registry is owned by the realtime gateway; no other component touches it.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Identity

	users domain.UserRepository
}

func NewRegistry(users domain.UserRepository) *Registry {
	return &Registry{
		conns: make(map[string]Identity),
		users: users,
	}
}

// Join resolves or creates the durable user for username, marks it online,
// and registers the connection. A failed durable status write is logged but
// does not fail the join; presence is advisory, attribution is not.
func (r *Registry) Join(ctx context.Context, connID, username string) (Identity, error) {
	user, err := r.users.GetByUsername(ctx, username)
	if err != nil {
		return Identity{}, err
	}
	if user == nil {
		user = &domain.User{Username: username, Status: domain.StatusOnline}
		if err := r.users.Create(ctx, user); err != nil {
			return Identity{}, err
		}
	} else if err := r.users.SetStatus(ctx, user.ID, domain.StatusOnline); err != nil {
		log.Printf("presence: set online for %q: %v", username, err)
	}

	id := Identity{UserID: user.ID, Username: user.Username}
	if user.DisplayName != nil {
		id.DisplayName = *user.DisplayName
	}

	r.mu.Lock()
	r.conns[connID] = id
	r.mu.Unlock()

	return id, nil
}

// Lookup returns the identity bound to a connection, if any.
func (r *Registry) Lookup(connID string) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.conns[connID]
	return id, ok
}

// Leave removes the connection and marks the user offline if no other
// connection of theirs remains. It never errors; duplicate disconnect
// signals resolve to (_, false).
func (r *Registry) Leave(ctx context.Context, connID string) (Identity, bool) {
	r.mu.Lock()
	id, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return Identity{}, false
	}
	delete(r.conns, connID)
	stillConnected := false
	for _, other := range r.conns {
		if other.UserID == id.UserID {
			stillConnected = true
			break
		}
	}
	r.mu.Unlock()

	if !stillConnected {
		if err := r.users.SetStatus(ctx, id.UserID, domain.StatusOffline); err != nil {
			log.Printf("presence: set offline for %q: %v", id.Username, err)
		}
	}
	return id, true
}

// Count returns the number of live connections. Two tabs of the same user
// count twice, matching broadcast semantics.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// ConnectionsFor returns the connection IDs bound to a username; used to
// unicast mention notices.
func (r *Registry) ConnectionsFor(username string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for connID, id := range r.conns {
		if id.Username == username {
			out = append(out, connID)
		}
	}
	return out
}

// Usernames returns the distinct usernames currently connected.
func (r *Registry) Usernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{}, len(r.conns))
	var out []string
	for _, id := range r.conns {
		if _, ok := seen[id.Username]; ok {
			continue
		}
		seen[id.Username] = struct{}{}
		out = append(out, id.Username)
	}
	return out
}

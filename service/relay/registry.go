package relay

import (
	"sync"
)

// Registry is the single source of truth for "is this user currently
// reachable". It maps userID -> connID -> Conn plus a reverse connID ->
// userID index. Every mutation is one lock-held step; no remote call ever
// happens under the lock.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]Conn
	byConn map[string]string // connID -> userID
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]map[string]Conn),
		byConn: make(map[string]string),
	}
}

// Admit adds the connection under its user and reports whether it is the
// user's first live connection (the online transition trigger). Admitting
// the same connection twice is a no-op.
func (r *Registry) Admit(userID string, c Conn) (first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byConn[c.ID()]; dup {
		return false
	}

	set := r.byUser[userID]
	if set == nil {
		set = make(map[string]Conn)
		r.byUser[userID] = set
		first = true
	}
	set[c.ID()] = c
	r.byConn[c.ID()] = userID
	return first
}

// Evict removes the connection from whichever user owns it and reports
// whether that user's set is now empty (the offline transition trigger).
// Evicting an unknown connection is a no-op, not an error. An emptied set
// is deleted, never kept around.
func (r *Registry) Evict(c Conn) (userID string, last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[c.ID()]
	if !ok {
		return "", false
	}
	delete(r.byConn, c.ID())

	set := r.byUser[userID]
	if set != nil {
		delete(set, c.ID())
		if len(set) == 0 {
			delete(r.byUser, userID)
			last = true
		}
	}
	return userID, last
}

// HandlesFor returns every live connection of one user, for directed
// delivery across all their devices.
func (r *Registry) HandlesFor(userID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byUser[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]Conn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// Online reports whether the user holds at least one live connection.
func (r *Registry) Online(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// Count returns the number of live connections a user holds.
func (r *Registry) Count(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID])
}

// AllHandles snapshots every registered connection, for global events like
// presence transitions.
func (r *Registry) AllHandles() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Conn, 0, len(r.byConn))
	for _, set := range r.byUser {
		for _, c := range set {
			out = append(out, c)
		}
	}
	return out
}

package memory

import (
	"context"
	"sync"
)

// Roster is an in-memory group directory implementing app.Roster and app.AdminDirectory
// (useful for tests/demos).
type Roster struct {
	mu       sync.RWMutex
	students map[string]map[string]struct{}
	admins   map[string]map[string]struct{}
}

func NewRoster() *Roster {
	return &Roster{
		students: make(map[string]map[string]struct{}),
		admins:   make(map[string]map[string]struct{}),
	}
}

// AddStudents puts students on a group's roster.
func (r *Roster) AddStudents(groupID string, studentIDs ...string) *Roster {
	r.mu.Lock()
	defer r.mu.Unlock()
	add(r.students, groupID, studentIDs)
	return r
}

// AddAdmins makes admins owners of a group.
func (r *Roster) AddAdmins(groupID string, adminIDs ...string) *Roster {
	r.mu.Lock()
	defer r.mu.Unlock()
	add(r.admins, groupID, adminIDs)
	return r
}

func (r *Roster) IsMember(_ context.Context, groupID, studentID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.students[groupID][studentID]
	return ok, nil
}

func (r *Roster) OwnsGroup(_ context.Context, groupID, adminID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.admins[groupID][adminID]
	return ok, nil
}

func add(m map[string]map[string]struct{}, groupID string, ids []string) {
	if m[groupID] == nil {
		m[groupID] = make(map[string]struct{})
	}
	for _, id := range ids {
		m[groupID][id] = struct{}{}
	}
}

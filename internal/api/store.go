package api

import (
	"strings"
	"sync"
)

type memoryStore struct {
	mu           sync.RWMutex
	users        map[string]*User
	usersByEmail map[string]*User
	state        map[string]string
	audit        []AuditEntry
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:        map[string]*User{},
		usersByEmail: map[string]*User{},
		state:        map[string]string{},
		audit:        []AuditEntry{},
	}
}

func (s *memoryStore) AddUser(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[cp.ID] = &cp
	s.usersByEmail[strings.ToLower(cp.Email)] = &cp
}

func (s *memoryStore) FindUserByEmail(email string) *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u := s.usersByEmail[strings.ToLower(email)]
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

func (s *memoryStore) FindUserByID(id string) *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u := s.users[id]
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

func (s *memoryStore) UpdateUserProfile(id, profileJSON string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	if u == nil {
		return false
	}
	u.ProfileJSON = profileJSON
	return true
}

func (s *memoryStore) GetState(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.state[key]
	return v, ok
}

func (s *memoryStore) SetState(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[key] = value
}

func (s *memoryStore) DeleteState(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state, key)
}

func (s *memoryStore) AddAudit(e AuditEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
}

func (s *memoryStore) ListAudit() []AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AuditEntry(nil), s.audit...)
}

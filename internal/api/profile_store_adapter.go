package api

import (
	"encoding/json"

	"github.com/thalia-health/thalia/internal/services"
)

type profileStoreAdapter struct {
	store Store
}

func newProfileStoreAdapter(store Store) services.ProfileStore {
	return &profileStoreAdapter{store: store}
}

func (a *profileStoreAdapter) FindUserByID(id string) (*services.User, error) {
	return toServiceUser(a.store.FindUserByID(id)), nil
}

func (a *profileStoreAdapter) UpdateUserProfile(id string, p services.Profile) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if !a.store.UpdateUserProfile(id, string(b)) {
		return services.NewNotFoundError("user not found")
	}
	return nil
}

func (a *profileStoreAdapter) AddAudit(e services.AuditEntry) {
	a.store.AddAudit(AuditEntry{Time: e.Time, Actor: e.Actor, Action: e.Action, Target: e.Target, Note: e.Note})
}

// toServiceUser converts the stored record. A malformed profile blob
// yields a zero profile rather than an error.
func toServiceUser(u *User) *services.User {
	if u == nil {
		return nil
	}
	out := &services.User{ID: u.ID, Name: u.Name, Email: u.Email, PassHash: u.PassHash, CreatedAt: u.CreatedAt}
	if u.ProfileJSON != "" {
		_ = json.Unmarshal([]byte(u.ProfileJSON), &out.Profile)
	}
	return out
}

var _ services.ProfileStore = (*profileStoreAdapter)(nil)

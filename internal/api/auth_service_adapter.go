package api

import (
	"encoding/json"

	"github.com/thalia-health/thalia/internal/services"
)

type authStoreAdapter struct {
	store Store
}

func newAuthStoreAdapter(store Store) services.AuthStore {
	return &authStoreAdapter{store: store}
}

func (a *authStoreAdapter) FindUserByEmail(email string) (*services.User, error) {
	return toServiceUser(a.store.FindUserByEmail(email)), nil
}

func (a *authStoreAdapter) FindUserByID(id string) (*services.User, error) {
	return toServiceUser(a.store.FindUserByID(id)), nil
}

func (a *authStoreAdapter) AddUser(u *services.User) error {
	if u == nil {
		return services.NewInvalidError("user required")
	}
	b, err := json.Marshal(u.Profile)
	if err != nil {
		return err
	}
	a.store.AddUser(&User{ID: u.ID, Name: u.Name, Email: u.Email, PassHash: u.PassHash, CreatedAt: u.CreatedAt, ProfileJSON: string(b)})
	return nil
}

var _ services.AuthStore = (*authStoreAdapter)(nil)

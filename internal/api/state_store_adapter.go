package api

import "github.com/thalia-health/thalia/internal/services"

type stateStoreAdapter struct {
	store Store
}

func newStateStoreAdapter(store Store) services.StateStore {
	return &stateStoreAdapter{store: store}
}

func (a *stateStoreAdapter) GetState(userID, namespace string) (string, bool, error) {
	v, ok := a.store.GetState(StateKey(userID, namespace))
	return v, ok, nil
}

func (a *stateStoreAdapter) SetState(userID, namespace, value string) error {
	a.store.SetState(StateKey(userID, namespace), value)
	return nil
}

func (a *stateStoreAdapter) DeleteState(userID, namespace string) error {
	a.store.DeleteState(StateKey(userID, namespace))
	return nil
}

var _ services.StateStore = (*stateStoreAdapter)(nil)

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/thalia-health/thalia/internal/api"
)

// legacyUser mirrors one entry of the old thalia_users.json snapshot,
// keyed by email.
type legacyUser struct {
	UserID       string          `json:"user_id"`
	Name         string          `json:"name"`
	PasswordHash string          `json:"password_hash"`
	CreatedAt    string          `json:"created_at"`
	Profile      json.RawMessage `json:"profile"`
}

// importLegacyUsers performs the one-time import of a legacy JSON user
// snapshot. Users whose email already exists are left untouched, so the
// import is safe to rerun.
func importLegacyUsers(store api.Store, path string, log *slog.Logger) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read legacy snapshot: %w", err)
	}
	var users map[string]legacyUser
	if err := json.Unmarshal(raw, &users); err != nil {
		return fmt.Errorf("parse legacy snapshot: %w", err)
	}

	imported := 0
	for email, lu := range users {
		if email == "" || lu.UserID == "" {
			continue
		}
		if store.FindUserByEmail(email) != nil {
			continue
		}
		createdAt := time.Now().UTC()
		if ts, err := time.Parse(time.RFC3339, lu.CreatedAt); err == nil {
			createdAt = ts
		}
		store.AddUser(&api.User{
			ID:          lu.UserID,
			Name:        lu.Name,
			Email:       email,
			PassHash:    []byte(lu.PasswordHash),
			CreatedAt:   createdAt,
			ProfileJSON: string(lu.Profile),
		})
		imported++
	}
	if imported > 0 {
		log.Info("imported legacy users", slog.Int("count", imported), slog.String("path", path))
	}
	return nil
}

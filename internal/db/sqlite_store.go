package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/thalia-health/thalia/internal/api"
)

// SQLiteStore is the durable api.Store. The memory store covers tests and
// ephemeral runs; this one is what the server uses by default.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func NewStore(db *sql.DB) (api.Store, error) {
	return NewSQLiteStore(db)
}

func (s *SQLiteStore) logErr(prefix string, err error) {
	if err != nil {
		log.Printf("sqlite store: %s: %v", prefix, err)
	}
}

func (s *SQLiteStore) AddUser(u *api.User) {
	_, err := s.db.Exec(`INSERT INTO users (id, name, email, pass_hash, created_at, profile_json)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, email=excluded.email,
			pass_hash=excluded.pass_hash, profile_json=excluded.profile_json`,
		u.ID, u.Name, strings.ToLower(u.Email), u.PassHash,
		u.CreatedAt.UTC().Format(time.RFC3339Nano), u.ProfileJSON)
	s.logErr("add user", err)
}

func (s *SQLiteStore) FindUserByEmail(email string) *api.User {
	return s.scanUser(s.db.QueryRow(
		`SELECT id, name, email, pass_hash, created_at, profile_json FROM users WHERE email = ?`,
		strings.ToLower(email)))
}

func (s *SQLiteStore) FindUserByID(id string) *api.User {
	return s.scanUser(s.db.QueryRow(
		`SELECT id, name, email, pass_hash, created_at, profile_json FROM users WHERE id = ?`, id))
}

func (s *SQLiteStore) scanUser(row *sql.Row) *api.User {
	var u api.User
	var createdAt string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PassHash, &createdAt, &u.ProfileJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		s.logErr("scan user", err)
		return nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		u.CreatedAt = ts
	}
	return &u
}

func (s *SQLiteStore) UpdateUserProfile(id, profileJSON string) bool {
	res, err := s.db.Exec(`UPDATE users SET profile_json = ? WHERE id = ?`, profileJSON, id)
	if err != nil {
		s.logErr("update user profile", err)
		return false
	}
	n, err := res.RowsAffected()
	s.logErr("update user profile rows", err)
	return n > 0
}

func (s *SQLiteStore) GetState(key string) (string, bool) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM app_state WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		s.logErr("get state", err)
		return "", false
	}
	return v, true
}

func (s *SQLiteStore) SetState(key, value string) {
	_, err := s.db.Exec(`INSERT INTO app_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano))
	s.logErr("set state", err)
}

func (s *SQLiteStore) DeleteState(key string) {
	_, err := s.db.Exec(`DELETE FROM app_state WHERE key = ?`, key)
	s.logErr("delete state", err)
}

func (s *SQLiteStore) AddAudit(e api.AuditEntry) {
	_, err := s.db.Exec(`INSERT INTO audit_log (at, actor, action, target, note) VALUES (?, ?, ?, ?, ?)`,
		e.Time.UTC().Format(time.RFC3339Nano), e.Actor, e.Action, e.Target, e.Note)
	s.logErr("add audit", err)
}

func (s *SQLiteStore) ListAudit() []api.AuditEntry {
	rows, err := s.db.Query(`SELECT at, actor, action, target, note FROM audit_log ORDER BY id`)
	if err != nil {
		s.logErr("list audit", err)
		return nil
	}
	defer rows.Close()
	var out []api.AuditEntry
	for rows.Next() {
		var e api.AuditEntry
		var at string
		if err := rows.Scan(&at, &e.Actor, &e.Action, &e.Target, &e.Note); err != nil {
			s.logErr("scan audit", err)
			continue
		}
		if ts, err := time.Parse(time.RFC3339Nano, at); err == nil {
			e.Time = ts
		}
		out = append(out, e)
	}
	s.logErr("iterate audit", rows.Err())
	return out
}

var _ api.Store = (*SQLiteStore)(nil)

package api

import "time"

// User is the stored account record. The session profile travels as raw
// JSON so the memory and sqlite stores share one representation.
type User struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	PassHash    []byte    `json:"pass_hash"`
	CreatedAt   time.Time `json:"created_at"`
	ProfileJSON string    `json:"profile_json,omitempty"`
}

type AuditEntry struct {
	Time   time.Time `json:"time"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Target string    `json:"target,omitempty"`
	Note   string    `json:"note,omitempty"`
}

type Store interface {
	AddUser(u *User)
	FindUserByEmail(email string) *User
	FindUserByID(id string) *User
	UpdateUserProfile(id, profileJSON string) bool

	GetState(key string) (string, bool)
	SetState(key, value string)
	DeleteState(key string)

	AddAudit(e AuditEntry)
	ListAudit() []AuditEntry
}

var _ Store = (*memoryStore)(nil)

// StateKey builds the storage key for one user's state namespace. Every
// state read and write goes through it; nothing else assembles raw keys.
func StateKey(userID, namespace string) string {
	return namespace + ":" + userID
}

package services

import "time"

type Severity string

const (
	SeverityNone     Severity = "No or little"
	SeverityMild     Severity = "Mild"
	SeverityModerate Severity = "Moderate"
	SeveritySevere   Severity = "Severe"
)

// Score is the result of one baseline MRS assessment. Immutable once
// computed; the same answers always produce the same score.
type Score struct {
	TotalScore         int      `json:"totalScore"`
	Severity           Severity `json:"severity"`
	PsychologicalScore int      `json:"psychologicalScore"`
	SomaticScore       int      `json:"somaticScore"`
	UrogenitalScore    int      `json:"urogenitalScore"`
}

// RawAnswers maps question ids (q1..q11) to severity ratings 0..4.
// A missing question counts as zero.
type RawAnswers map[string]int

// Profile holds the baseline fields the session engine owns. The rest of
// the user record belongs to the auth layer.
type Profile struct {
	BaselineCompleted bool   `json:"baseline_completed"`
	BaselineDate      string `json:"baseline_date,omitempty"`
	BaselineScore     *Score `json:"baseline_score,omitempty"`
}

type User struct {
	ID        string
	Name      string
	Email     string
	PassHash  []byte
	CreatedAt time.Time
	Profile   Profile
}

type Role string

const (
	RoleBot  Role = "bot"
	RoleUser Role = "user"
)

// ActionID names a chat action button. The set is closed; actions are
// dispatched through an explicit table, never interpreted from free text.
type ActionID string

const (
	ActionStartAssessment ActionID = "start_assessment"
	ActionLearnMore       ActionID = "learn_more"
	ActionDownloadReport  ActionID = "download_report"
	ActionAskQuestions    ActionID = "ask_questions"
)

type Action struct {
	ID      ActionID `json:"id"`
	Label   string   `json:"label"`
	Primary bool     `json:"primary,omitempty"`
}

// ChatTurn is one transcript entry. Turns are append-only and never
// mutated after creation.
type ChatTurn struct {
	Role     Role     `json:"role"`
	Content  string   `json:"content"`
	IsMarkup bool     `json:"is_markup,omitempty"`
	Actions  []Action `json:"actions,omitempty"`
}

type EventStatus string

const (
	EventPending  EventStatus = "pending"
	EventReviewed EventStatus = "reviewed"
)

type LogMethod string

const (
	LogMethodAuto   LogMethod = "auto"
	LogMethodManual LogMethod = "manual"
)

// PendingSymptomEvent is an auto-detected symptom waiting for review.
type PendingSymptomEvent struct {
	Symptom     string            `json:"symptom"`
	Timestamp   time.Time         `json:"timestamp"`
	Status      EventStatus       `json:"status"`
	LogMethod   LogMethod         `json:"log_method"`
	ChatContext string            `json:"chat_context,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// DetectionHint is the chat collaborator's inferred symptom mention.
type DetectionHint struct {
	Symptom        string            `json:"symptom"`
	MessageContext string            `json:"message_context"`
	Extra          map[string]string `json:"extra,omitempty"`
}

type AuditEntry struct {
	Time   time.Time
	Actor  string
	Action string
	Target string
	Note   string
}

// StateStore is the per-user key-value persistence substrate shared by the
// transcript and symptom log stores and the disclaimer flag. Implementations
// return ok=false for missing keys and must be read-after-write consistent
// within a process.
type StateStore interface {
	GetState(userID, namespace string) (value string, ok bool, err error)
	SetState(userID, namespace, value string) error
	DeleteState(userID, namespace string) error
}

// State namespaces. Keys are built from these by the persistence layer's
// key builder; services never assemble raw keys.
const (
	NamespaceDisclaimer  = "disclaimer"
	NamespaceChatHistory = "chat_history"
	NamespacePendingLogs = "pending_logs"
)

package services

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

type SessionState string

const (
	StateAwaitingDisclaimer   SessionState = "AWAITING_DISCLAIMER"
	StateOnboardingPending    SessionState = "ONBOARDING_PENDING"
	StateAssessmentInProgress SessionState = "ASSESSMENT_IN_PROGRESS"
	StateFreeChat             SessionState = "FREE_CHAT"
	StateDeclined             SessionState = "DECLINED"
)

// Directives tell the presentation layer which surface to open after a
// dispatched action. They are the only coupling to the out-of-scope UI.
const (
	DirectiveOpenQuestionnaire = "open_questionnaire"
	DirectiveDownloadReport    = "download_report"
	DirectiveSignOut           = "sign_out"
)

// ProfileStore supplies the authenticated user's profile and accepts the
// updated baseline fields after assessment completion.
type ProfileStore interface {
	FindUserByID(id string) (*User, error)
	UpdateUserProfile(id string, p Profile) error
	AddAudit(entry AuditEntry)
}

// SessionService governs the onboarding sequence: disclaimer, baseline
// assessment, then free chat. The current state is
// derived from persisted facts at session start, not stored; only the
// transient assessment-open step lives in memory.
type SessionService struct {
	profiles    ProfileStore
	transcripts *TranscriptService
	state       StateStore
	now         func() time.Time

	mu         sync.Mutex
	assessment map[string]bool // user ids with the questionnaire open

	dispatch map[ActionID]func(u *User) (*DispatchResult, error)
}

type SessionView struct {
	State      SessionState `json:"state"`
	Transcript []ChatTurn   `json:"transcript"`
	Profile    Profile      `json:"profile"`
}

type DispatchResult struct {
	Directive string     `json:"directive,omitempty"`
	Turns     []ChatTurn `json:"turns,omitempty"`
}

type AssessmentResult struct {
	Score Score        `json:"score"`
	State SessionState `json:"state"`
	Turn  ChatTurn     `json:"turn"`
}

func NewSessionService(profiles ProfileStore, transcripts *TranscriptService, state StateStore) *SessionService {
	s := &SessionService{
		profiles:    profiles,
		transcripts: transcripts,
		state:       state,
		now:         func() time.Time { return time.Now().UTC() },
		assessment:  map[string]bool{},
	}
	// Closed action set: every chat button names one of these handlers.
	s.dispatch = map[ActionID]func(u *User) (*DispatchResult, error){
		ActionStartAssessment: s.actionStartAssessment,
		ActionLearnMore:       s.actionLearnMore,
		ActionDownloadReport:  s.actionDownloadReport,
		ActionAskQuestions:    s.actionAskQuestions,
	}
	return s
}

// Start derives the session state for a user and returns the transcript to
// restore. The onboarding greeting is ephemeral (re-shown each session
// start until the assessment is done); the welcome-back notice is persisted
// so a restart with a non-empty transcript never repeats it.
func (s *SessionService) Start(userID string) (*SessionView, error) {
	u, err := s.requireUser(userID)
	if err != nil {
		return nil, err
	}
	if !s.disclaimerAccepted(userID) {
		return &SessionView{State: StateAwaitingDisclaimer, Transcript: []ChatTurn{}, Profile: u.Profile}, nil
	}
	turns, err := s.transcripts.LoadAll(userID)
	if err != nil {
		return nil, err
	}
	state := s.currentState(u, len(turns) == 0)
	switch {
	case state == StateOnboardingPending || state == StateAssessmentInProgress:
		turns = append(turns, onboardingGreeting())
	case state == StateFreeChat && len(turns) == 0:
		welcome := welcomeBackTurn(u.Name)
		if err := s.transcripts.Append(userID, welcome); err != nil {
			return nil, err
		}
		turns = append(turns, welcome)
	}
	return &SessionView{State: state, Transcript: turns, Profile: u.Profile}, nil
}

// AcceptDisclaimer persists the acceptance flag and moves the session past
// the gate: straight to free chat when a baseline already exists.
func (s *SessionService) AcceptDisclaimer(userID string) (SessionState, error) {
	u, err := s.requireUser(userID)
	if err != nil {
		return "", err
	}
	if err := s.state.SetState(userID, NamespaceDisclaimer, "true"); err != nil {
		return "", err
	}
	s.profiles.AddAudit(AuditEntry{Time: s.now(), Actor: userID, Action: "disclaimer_accept", Target: userID})
	if u.Profile.BaselineCompleted {
		return StateFreeChat, nil
	}
	return StateOnboardingPending, nil
}

// DeclineDisclaimer is terminal for the session: the caller signs the user
// out and a fresh disclaimer is required on the next visit.
func (s *SessionService) DeclineDisclaimer(userID string) (*DispatchResult, error) {
	if _, err := s.requireUser(userID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	delete(s.assessment, userID)
	s.mu.Unlock()
	s.profiles.AddAudit(AuditEntry{Time: s.now(), Actor: userID, Action: "disclaimer_decline", Target: userID})
	return &DispatchResult{Directive: DirectiveSignOut}, nil
}

// SubmitAssessment scores the completed questionnaire, writes the baseline
// back to the profile and enters free chat with the result turn appended to
// the transcript.
func (s *SessionService) SubmitAssessment(userID string, answers RawAnswers) (*AssessmentResult, error) {
	u, err := s.requireUser(userID)
	if err != nil {
		return nil, err
	}
	if !s.disclaimerAccepted(userID) {
		return nil, NewInvalidError("disclaimer not accepted")
	}
	if u.Profile.BaselineCompleted {
		return nil, NewConflictError("baseline assessment already completed")
	}
	for q, v := range answers {
		if v < 0 || v > 4 {
			return nil, NewInvalidError(fmt.Sprintf("answer %s out of range", q))
		}
	}

	score := ScoreAnswers(answers)
	now := s.now()
	profile := Profile{
		BaselineCompleted: true,
		BaselineDate:      now.Format("2006-01-02"),
		BaselineScore:     &score,
	}
	if err := s.profiles.UpdateUserProfile(userID, profile); err != nil {
		return nil, err
	}

	turn := assessmentResultTurn(score)
	if err := s.transcripts.Append(userID, turn); err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.assessment, userID)
	s.mu.Unlock()
	s.profiles.AddAudit(AuditEntry{
		Time: now, Actor: userID, Action: "assessment_submit", Target: userID,
		Note: fmt.Sprintf("total=%d severity=%s", score.TotalScore, score.Severity),
	})
	return &AssessmentResult{Score: score, State: StateFreeChat, Turn: turn}, nil
}

// CloseAssessment dismisses the questionnaire without scoring.
func (s *SessionService) CloseAssessment(userID string) (SessionState, error) {
	u, err := s.requireUser(userID)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	delete(s.assessment, userID)
	s.mu.Unlock()
	turns, err := s.transcripts.LoadAll(userID)
	if err != nil {
		return "", err
	}
	return s.currentState(u, len(turns) == 0), nil
}

// Dispatch routes a named chat action to its handler.
func (s *SessionService) Dispatch(userID string, action ActionID) (*DispatchResult, error) {
	u, err := s.requireUser(userID)
	if err != nil {
		return nil, err
	}
	fn, ok := s.dispatch[action]
	if !ok {
		return nil, NewInvalidError("unknown action")
	}
	return fn(u)
}

func (s *SessionService) actionStartAssessment(u *User) (*DispatchResult, error) {
	if u.Profile.BaselineCompleted {
		return nil, NewConflictError("baseline assessment already completed")
	}
	s.mu.Lock()
	s.assessment[u.ID] = true
	s.mu.Unlock()
	return &DispatchResult{Directive: DirectiveOpenQuestionnaire}, nil
}

func (s *SessionService) actionLearnMore(u *User) (*DispatchResult, error) {
	turns := []ChatTurn{
		{Role: RoleUser, Content: "Tell me more about the assessment"},
		assessmentExplainer(),
	}
	for _, t := range turns {
		if err := s.transcripts.Append(u.ID, t); err != nil {
			return nil, err
		}
	}
	return &DispatchResult{Turns: turns}, nil
}

func (s *SessionService) actionDownloadReport(u *User) (*DispatchResult, error) {
	if !u.Profile.BaselineCompleted {
		return nil, NewNotFoundError("no baseline assessment on record")
	}
	turn := ChatTurn{Role: RoleUser, Content: "I want to download my assessment report"}
	if err := s.transcripts.Append(u.ID, turn); err != nil {
		return nil, err
	}
	return &DispatchResult{Directive: DirectiveDownloadReport, Turns: []ChatTurn{turn}}, nil
}

func (s *SessionService) actionAskQuestions(u *User) (*DispatchResult, error) {
	turn := ChatTurn{Role: RoleBot, Content: "Great! I'm here to support you. Feel free to share how you're feeling or ask any questions. I'll be tracking patterns in the background to help you better understand your symptoms."}
	if err := s.transcripts.Append(u.ID, turn); err != nil {
		return nil, err
	}
	return &DispatchResult{Turns: []ChatTurn{turn}}, nil
}

func (s *SessionService) requireUser(userID string) (*User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, NewUnauthorizedError("no authenticated user")
	}
	u, err := s.profiles.FindUserByID(userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewUnauthorizedError("no authenticated user")
	}
	return u, nil
}

// disclaimerAccepted reads the persisted flag, failing open: anything but a
// well-formed "true" means the disclaimer must be shown again.
func (s *SessionService) disclaimerAccepted(userID string) bool {
	raw, ok, err := s.state.GetState(userID, NamespaceDisclaimer)
	if err != nil || !ok {
		return false
	}
	return raw == "true"
}

func (s *SessionService) currentState(u *User, transcriptEmpty bool) SessionState {
	s.mu.Lock()
	open := s.assessment[u.ID]
	s.mu.Unlock()
	if open && !u.Profile.BaselineCompleted {
		return StateAssessmentInProgress
	}
	if transcriptEmpty && !u.Profile.BaselineCompleted {
		return StateOnboardingPending
	}
	return StateFreeChat
}

func onboardingGreeting() ChatTurn {
	return ChatTurn{
		Role: RoleBot,
		Content: "Hi there! Welcome to Thalia 🌸\n\n" +
			"Before we begin, I'd love to learn a bit about your experience so I can provide guidance that's most helpful to you.\n\n" +
			"Just 11 quick questions (about 2 minutes) covering common symptoms like sleep, mood, and hot flushes.\n\n" +
			"Ready when you are 💜",
		Actions: []Action{
			{ID: ActionStartAssessment, Label: "📝 Start Assessment", Primary: true},
			{ID: ActionLearnMore, Label: "ℹ️ Learn More"},
		},
	}
}

func assessmentExplainer() ChatTurn {
	return ChatTurn{
		Role: RoleBot,
		Content: "The Menopause Rating Scale (MRS) is a medically validated questionnaire used by healthcare providers worldwide.\n\n" +
			"**What it covers:**\n" +
			"• Physical symptoms (hot flashes, sleep, joint pain)\n" +
			"• Psychological symptoms (mood, anxiety, exhaustion)\n" +
			"• Urogenital symptoms (bladder, vaginal health)\n\n" +
			"**Why it helps:**\n" +
			"• Establishes your baseline\n" +
			"• Tracks progress over time\n" +
			"• Helps me personalize advice for you\n" +
			"• Can be shared with your doctor\n\n" +
			"All answers are confidential and stored securely.\n\nReady to begin?",
		Actions: []Action{
			{ID: ActionStartAssessment, Label: "📝 Yes, Start Now", Primary: true},
		},
	}
}

func assessmentResultTurn(score Score) ChatTurn {
	return ChatTurn{
		Role: RoleBot,
		Content: fmt.Sprintf("📊 **Your Baseline Assessment**\n\n"+
			"**Overall Score:** %d/44 (%s)\n\n"+
			"Psychological: %d/16 · Somatic: %d/16 · Urogenital: %d/12\n\n"+
			"This is your baseline. I'll track your progress from here. Feel free to ask me anything about your symptoms or menopause in general!",
			score.TotalScore, score.Severity,
			score.PsychologicalScore, score.SomaticScore, score.UrogenitalScore),
		IsMarkup: true,
		Actions: []Action{
			{ID: ActionDownloadReport, Label: "📥 Download Report", Primary: true},
			{ID: ActionAskQuestions, Label: "💬 Ask Questions"},
		},
	}
}

func welcomeBackTurn(name string) ChatTurn {
	first := name
	if i := strings.IndexByte(name, ' '); i > 0 {
		first = name[:i]
	}
	return ChatTurn{
		Role:    RoleBot,
		Content: fmt.Sprintf("Welcome back, %s! How can I help you today? Feel free to share how you're feeling or ask any questions.", first),
	}
}

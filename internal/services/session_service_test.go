package services

import (
	"strings"
	"testing"
	"time"
)

type stubProfileStore struct {
	users map[string]*User
	audit []AuditEntry
}

func newStubProfileStore(users ...*User) *stubProfileStore {
	s := &stubProfileStore{users: map[string]*User{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *stubProfileStore) FindUserByID(id string) (*User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *stubProfileStore) UpdateUserProfile(id string, p Profile) error {
	if u, ok := s.users[id]; ok {
		u.Profile = p
	}
	return nil
}

func (s *stubProfileStore) AddAudit(entry AuditEntry) { s.audit = append(s.audit, entry) }

func newSessionFixture(u *User) (*SessionService, *stubProfileStore, *stubStateStore) {
	profiles := newStubProfileStore(u)
	state := newStubStateStore()
	svc := NewSessionService(profiles, NewTranscriptService(state), state)
	svc.now = func() time.Time { return time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC) }
	return svc, profiles, state
}

func TestSessionStartsAtDisclaimer(t *testing.T) {
	svc, _, _ := newSessionFixture(&User{ID: "u1", Name: "Ada Lovelace"})
	view, err := svc.Start("u1")
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if view.State != StateAwaitingDisclaimer {
		t.Fatalf("state=%s, want AWAITING_DISCLAIMER", view.State)
	}
	if len(view.Transcript) != 0 {
		t.Fatalf("transcript should be withheld before acceptance")
	}
}

func TestSessionAcceptDisclaimer(t *testing.T) {
	svc, profiles, _ := newSessionFixture(&User{ID: "u1", Name: "Ada Lovelace"})
	st, err := svc.AcceptDisclaimer("u1")
	if err != nil {
		t.Fatalf("AcceptDisclaimer error: %v", err)
	}
	if st != StateOnboardingPending {
		t.Fatalf("state=%s, want ONBOARDING_PENDING", st)
	}
	if len(profiles.audit) != 1 || profiles.audit[0].Action != "disclaimer_accept" {
		t.Fatalf("missing audit entry: %+v", profiles.audit)
	}

	view, _ := svc.Start("u1")
	if view.State != StateOnboardingPending {
		t.Fatalf("derived state=%s, want ONBOARDING_PENDING", view.State)
	}
	if len(view.Transcript) != 1 || view.Transcript[0].Role != RoleBot {
		t.Fatalf("expected the onboarding greeting, got %+v", view.Transcript)
	}
	if len(view.Transcript[0].Actions) != 2 {
		t.Fatalf("greeting should carry the two onboarding actions")
	}
}

func TestSessionAcceptSkipsOnboardingWhenBaselineDone(t *testing.T) {
	score := ScoreAnswers(RawAnswers{"q1": 2})
	u := &User{ID: "u1", Name: "Ada Lovelace", Profile: Profile{BaselineCompleted: true, BaselineScore: &score}}
	svc, _, _ := newSessionFixture(u)

	st, err := svc.AcceptDisclaimer("u1")
	if err != nil || st != StateFreeChat {
		t.Fatalf("state=%s err=%v, want FREE_CHAT", st, err)
	}
}

func TestSessionDeclineSignsOut(t *testing.T) {
	svc, profiles, _ := newSessionFixture(&User{ID: "u1", Name: "Ada Lovelace"})
	res, err := svc.DeclineDisclaimer("u1")
	if err != nil {
		t.Fatalf("DeclineDisclaimer error: %v", err)
	}
	if res.Directive != DirectiveSignOut {
		t.Fatalf("directive=%q, want sign_out", res.Directive)
	}
	if len(profiles.audit) != 1 || profiles.audit[0].Action != "disclaimer_decline" {
		t.Fatalf("missing decline audit: %+v", profiles.audit)
	}
	// No acceptance was recorded, so the next session starts at the gate.
	view, _ := svc.Start("u1")
	if view.State != StateAwaitingDisclaimer {
		t.Fatalf("state=%s, want AWAITING_DISCLAIMER", view.State)
	}
}

func TestSessionAssessmentFlow(t *testing.T) {
	svc, profiles, _ := newSessionFixture(&User{ID: "u1", Name: "Ada Lovelace"})
	if _, err := svc.AcceptDisclaimer("u1"); err != nil {
		t.Fatalf("AcceptDisclaimer error: %v", err)
	}

	res, err := svc.Dispatch("u1", ActionStartAssessment)
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if res.Directive != DirectiveOpenQuestionnaire {
		t.Fatalf("directive=%q, want open_questionnaire", res.Directive)
	}
	view, _ := svc.Start("u1")
	if view.State != StateAssessmentInProgress {
		t.Fatalf("state=%s, want ASSESSMENT_IN_PROGRESS", view.State)
	}

	answers := RawAnswers{
		"q1": 3, "q2": 2, "q3": 1, "q4": 1, "q5": 1, "q6": 1,
		"q7": 1, "q8": 1, "q9": 1, "q10": 1, "q11": 1,
	}
	result, err := svc.SubmitAssessment("u1", answers)
	if err != nil {
		t.Fatalf("SubmitAssessment error: %v", err)
	}
	if result.State != StateFreeChat {
		t.Fatalf("state=%s, want FREE_CHAT", result.State)
	}
	if result.Score.TotalScore != 14 || result.Score.Severity != SeverityModerate {
		t.Fatalf("unexpected score: %+v", result.Score)
	}

	u := profiles.users["u1"]
	if !u.Profile.BaselineCompleted || u.Profile.BaselineDate != "2025-06-03" {
		t.Fatalf("profile not updated: %+v", u.Profile)
	}
	if u.Profile.BaselineScore == nil || u.Profile.BaselineScore.TotalScore != 14 {
		t.Fatalf("baseline score not stored: %+v", u.Profile.BaselineScore)
	}

	// The result turn is persisted, so the next start resumes free chat.
	view, _ = svc.Start("u1")
	if view.State != StateFreeChat {
		t.Fatalf("state=%s, want FREE_CHAT", view.State)
	}
	if len(view.Transcript) != 1 || !strings.Contains(view.Transcript[0].Content, "14/44") {
		t.Fatalf("result turn not in transcript: %+v", view.Transcript)
	}
}

func TestSessionSubmitRejectsOutOfRange(t *testing.T) {
	svc, _, _ := newSessionFixture(&User{ID: "u1", Name: "Ada Lovelace"})
	_, _ = svc.AcceptDisclaimer("u1")
	_, err := svc.SubmitAssessment("u1", RawAnswers{"q1": 5})
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorInvalid {
		t.Fatalf("expected invalid error, got %v", err)
	}
}

func TestSessionSubmitTwiceConflicts(t *testing.T) {
	svc, _, _ := newSessionFixture(&User{ID: "u1", Name: "Ada Lovelace"})
	_, _ = svc.AcceptDisclaimer("u1")
	if _, err := svc.SubmitAssessment("u1", RawAnswers{"q1": 1}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := svc.SubmitAssessment("u1", RawAnswers{"q1": 1})
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestSessionWelcomeBackEmittedOnce(t *testing.T) {
	score := ScoreAnswers(RawAnswers{"q1": 2})
	u := &User{ID: "u1", Name: "Ada Lovelace", Profile: Profile{BaselineCompleted: true, BaselineScore: &score}}
	svc, _, _ := newSessionFixture(u)
	_, _ = svc.AcceptDisclaimer("u1")

	view, err := svc.Start("u1")
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if view.State != StateFreeChat {
		t.Fatalf("state=%s, want FREE_CHAT", view.State)
	}
	if len(view.Transcript) != 1 || !strings.Contains(view.Transcript[0].Content, "Welcome back, Ada!") {
		t.Fatalf("expected welcome-back turn, got %+v", view.Transcript)
	}

	// A restart restores the transcript verbatim with no second greeting.
	view, _ = svc.Start("u1")
	if len(view.Transcript) != 1 {
		t.Fatalf("welcome-back repeated: %+v", view.Transcript)
	}
}

func TestSessionMalformedDisclaimerFlagFailsOpen(t *testing.T) {
	svc, _, state := newSessionFixture(&User{ID: "u1", Name: "Ada Lovelace"})
	_ = state.SetState("u1", NamespaceDisclaimer, "{corrupt}")

	view, err := svc.Start("u1")
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if view.State != StateAwaitingDisclaimer {
		t.Fatalf("state=%s, want AWAITING_DISCLAIMER on malformed flag", view.State)
	}
}

func TestSessionDispatchUnknownAction(t *testing.T) {
	svc, _, _ := newSessionFixture(&User{ID: "u1", Name: "Ada Lovelace"})
	_, err := svc.Dispatch("u1", ActionID("eval(code)"))
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorInvalid {
		t.Fatalf("expected invalid error, got %v", err)
	}
}

func TestSessionUnknownUser(t *testing.T) {
	svc, _, _ := newSessionFixture(&User{ID: "u1", Name: "Ada Lovelace"})
	_, err := svc.Start("ghost")
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestSessionDownloadReportRequiresBaseline(t *testing.T) {
	svc, _, _ := newSessionFixture(&User{ID: "u1", Name: "Ada Lovelace"})
	_, _ = svc.AcceptDisclaimer("u1")
	_, err := svc.Dispatch("u1", ActionDownloadReport)
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

package services

import (
	"context"
	"strings"
	"sync"
)

// ChatClient is the outbound chat-completion collaborator. Its transport is
// a black box to the orchestrator; failures are recovered locally, never
// retried here.
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatReply, error)
}

type ChatRequest struct {
	Message  string       `json:"message"`
	UserID   string       `json:"user_id"`
	UserData ChatUserData `json:"user_data"`
}

type ChatUserData struct {
	Baseline   *Score                `json:"baseline"`
	RecentLogs []PendingSymptomEvent `json:"recent_logs"`
}

type ChatReply struct {
	Response         string          `json:"response"`
	DetectedSymptoms []DetectionHint `json:"detected_symptoms"`
}

// FallbackReply is the supportive turn shown when the collaborator is
// unreachable; raw errors never reach the user.
const FallbackReply = "I apologize, but I encountered an error. Please try again or rephrase your question."

type ChatResult struct {
	Turn      ChatTurn `json:"turn"`
	Detected  int      `json:"detected"`
	Recovered bool     `json:"recovered"`
}

// ChatService relays user turns to the chat collaborator, persists both
// sides of the exchange and feeds detected symptoms into the log store. At
// most one chat turn per user is in flight at a time; the guard is
// advisory, released on success and failure alike.
type ChatService struct {
	client      ChatClient
	profiles    ProfileStore
	transcripts *TranscriptService
	logs        *SymptomLogService

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewChatService(client ChatClient, profiles ProfileStore, transcripts *TranscriptService, logs *SymptomLogService) *ChatService {
	return &ChatService{
		client:      client,
		profiles:    profiles,
		transcripts: transcripts,
		logs:        logs,
		inFlight:    map[string]bool{},
	}
}

func (s *ChatService) Send(ctx context.Context, userID, message string) (*ChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, NewInvalidError("message required")
	}
	u, err := s.profiles.FindUserByID(userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewUnauthorizedError("no authenticated user")
	}

	if !s.acquire(userID) {
		return nil, NewTooManyRequestsError("a chat turn is already in flight")
	}
	defer s.release(userID)

	if err := s.transcripts.Append(userID, ChatTurn{Role: RoleUser, Content: message}); err != nil {
		return nil, err
	}

	recent, err := s.logs.ListPending(userID)
	if err != nil {
		return nil, err
	}
	reply, err := s.client.Complete(ctx, ChatRequest{
		Message: message,
		UserID:  userID,
		UserData: ChatUserData{
			Baseline:   u.Profile.BaselineScore,
			RecentLogs: recent,
		},
	})
	if err != nil {
		// Recovered locally: one apology turn, the session stays usable.
		turn := ChatTurn{Role: RoleBot, Content: FallbackReply}
		if aerr := s.transcripts.Append(userID, turn); aerr != nil {
			return nil, aerr
		}
		return &ChatResult{Turn: turn, Recovered: true}, nil
	}

	turn := ChatTurn{Role: RoleBot, Content: reply.Response}
	if err := s.transcripts.Append(userID, turn); err != nil {
		return nil, err
	}
	detected, err := s.logs.RecordDetections(userID, reply.DetectedSymptoms)
	if err != nil {
		return nil, err
	}
	return &ChatResult{Turn: turn, Detected: detected}, nil
}

func (s *ChatService) acquire(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[userID] {
		return false
	}
	s.inFlight[userID] = true
	return true
}

func (s *ChatService) release(userID string) {
	s.mu.Lock()
	delete(s.inFlight, userID)
	s.mu.Unlock()
}

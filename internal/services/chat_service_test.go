package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubChatClient struct {
	reply    *ChatReply
	err      error
	requests []ChatRequest
	block    chan struct{} // when set, Complete waits until closed
}

func (c *stubChatClient) Complete(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	c.requests = append(c.requests, req)
	if c.block != nil {
		<-c.block
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.reply, nil
}

func newChatFixture(client *stubChatClient, u *User) (*ChatService, *TranscriptService, *SymptomLogService) {
	state := newStubStateStore()
	transcripts := NewTranscriptService(state)
	logs := NewSymptomLogService(state)
	logs.now = func() time.Time { return time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC) }
	return NewChatService(client, newStubProfileStore(u), transcripts, logs), transcripts, logs
}

func TestChatSendRoundTrip(t *testing.T) {
	score := ScoreAnswers(RawAnswers{"q1": 2, "q4": 3})
	client := &stubChatClient{reply: &ChatReply{
		Response: "That sounds like a hot flash. How often does it happen?",
		DetectedSymptoms: []DetectionHint{
			{Symptom: "hot flashes", MessageContext: "I keep waking up drenched"},
		},
	}}
	u := &User{ID: "u1", Name: "Ada Lovelace", Profile: Profile{BaselineCompleted: true, BaselineScore: &score}}
	svc, transcripts, logs := newChatFixture(client, u)

	res, err := svc.Send(context.Background(), "u1", "I keep waking up drenched")
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if res.Recovered || res.Detected != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Turn.Role != RoleBot || res.Turn.Content == "" {
		t.Fatalf("unexpected reply turn: %+v", res.Turn)
	}

	turns, _ := transcripts.LoadAll("u1")
	if len(turns) != 2 || turns[0].Role != RoleUser || turns[1].Role != RoleBot {
		t.Fatalf("transcript should hold user turn then bot turn: %+v", turns)
	}

	pending, _ := logs.ListPending("u1")
	if len(pending) != 1 || pending[0].Symptom != "hot flashes" {
		t.Fatalf("detection not recorded: %+v", pending)
	}

	// The outbound request carries the baseline and recent logs.
	if len(client.requests) != 1 {
		t.Fatalf("expected 1 outbound request, got %d", len(client.requests))
	}
	req := client.requests[0]
	if req.UserID != "u1" || req.UserData.Baseline == nil || req.UserData.Baseline.TotalScore != score.TotalScore {
		t.Fatalf("request missing baseline: %+v", req)
	}
}

func TestChatSendFallbackOnTransportFailure(t *testing.T) {
	client := &stubChatClient{err: errors.New("connection refused")}
	svc, transcripts, _ := newChatFixture(client, &User{ID: "u1", Name: "Ada Lovelace"})

	res, err := svc.Send(context.Background(), "u1", "hello?")
	if err != nil {
		t.Fatalf("transport failure must be recovered, got %v", err)
	}
	if !res.Recovered || res.Turn.Content != FallbackReply {
		t.Fatalf("expected apology turn, got %+v", res)
	}

	turns, _ := transcripts.LoadAll("u1")
	if len(turns) != 2 || turns[1].Content != FallbackReply {
		t.Fatalf("apology turn not persisted: %+v", turns)
	}

	// The in-flight guard was released on the failure path.
	client.err = nil
	client.reply = &ChatReply{Response: "back online"}
	if _, err := svc.Send(context.Background(), "u1", "still there?"); err != nil {
		t.Fatalf("guard not released after failure: %v", err)
	}
}

func TestChatSendRejectsEmptyMessage(t *testing.T) {
	svc, _, _ := newChatFixture(&stubChatClient{reply: &ChatReply{Response: "hi"}}, &User{ID: "u1"})
	_, err := svc.Send(context.Background(), "u1", "   ")
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorInvalid {
		t.Fatalf("expected invalid error, got %v", err)
	}
}

func TestChatSendSingleInFlightPerUser(t *testing.T) {
	client := &stubChatClient{reply: &ChatReply{Response: "thinking"}, block: make(chan struct{})}
	svc, _, _ := newChatFixture(client, &User{ID: "u1", Name: "Ada Lovelace"})

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := svc.Send(context.Background(), "u1", "first")
		done <- err
	}()
	<-started
	// Wait until the first turn holds the guard.
	deadline := time.After(time.Second)
	for {
		svc.mu.Lock()
		held := svc.inFlight["u1"]
		svc.mu.Unlock()
		if held {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first turn never acquired the guard")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	_, err := svc.Send(context.Background(), "u1", "second")
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorTooManyRequests {
		t.Fatalf("expected too_many_requests while in flight, got %v", err)
	}

	close(client.block)
	if err := <-done; err != nil {
		t.Fatalf("first turn failed: %v", err)
	}

	// Guard released after completion.
	client.block = nil
	if _, err := svc.Send(context.Background(), "u1", "third"); err != nil {
		t.Fatalf("guard not released: %v", err)
	}
}

func TestChatSendUnknownUser(t *testing.T) {
	svc, _, _ := newChatFixture(&stubChatClient{reply: &ChatReply{Response: "hi"}}, &User{ID: "u1"})
	_, err := svc.Send(context.Background(), "ghost", "hello")
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

package services

import "encoding/json"

// TranscriptService persists the per-user chat transcript over the state
// substrate. Every append rewrites the full snapshot, so an abrupt
// termination can only lose the latest unflushed turn, never an earlier one.
type TranscriptService struct {
	store StateStore
}

func NewTranscriptService(store StateStore) *TranscriptService {
	return &TranscriptService{store: store}
}

func (s *TranscriptService) Append(userID string, turn ChatTurn) error {
	turns, err := s.LoadAll(userID)
	if err != nil {
		return err
	}
	return s.ReplaceAll(userID, append(turns, turn))
}

// LoadAll returns the persisted transcript in insertion order. A missing or
// malformed snapshot reads as empty.
func (s *TranscriptService) LoadAll(userID string) ([]ChatTurn, error) {
	raw, ok, err := s.store.GetState(userID, NamespaceChatHistory)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var turns []ChatTurn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		// Fail open: an unreadable transcript is treated as absent.
		return nil, nil
	}
	return turns, nil
}

func (s *TranscriptService) ReplaceAll(userID string, turns []ChatTurn) error {
	if turns == nil {
		turns = []ChatTurn{}
	}
	b, err := json.Marshal(turns)
	if err != nil {
		return err
	}
	return s.store.SetState(userID, NamespaceChatHistory, string(b))
}

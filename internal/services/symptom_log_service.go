package services

import (
	"encoding/json"
	"sync"
	"time"
)

// SymptomLogService accumulates auto-detected symptom events for later
// review. For a given symptom at most one pending event may exist per
// calendar day; duplicate detections within the day are skipped, not
// updated.
type SymptomLogService struct {
	store StateStore
	now   func() time.Time

	mu        sync.Mutex
	observers []func(userID string)
}

func NewSymptomLogService(store StateStore) *SymptomLogService {
	return &SymptomLogService{
		store: store,
		now:   func() time.Time { return time.Now() },
	}
}

// Subscribe registers an observer invoked after every recorded detection
// batch. The notification fires even when the whole batch deduplicated to
// nothing, so dashboards refresh either way; consumers that care can check
// the pending list themselves.
func (s *SymptomLogService) Subscribe(fn func(userID string)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// RecordDetections appends one pending event per new (symptom, day) pair
// and returns the number of events actually inserted.
func (s *SymptomLogService) RecordDetections(userID string, hints []DetectionHint) (int, error) {
	if len(hints) == 0 {
		return 0, nil
	}
	logs, err := s.ListPending(userID)
	if err != nil {
		return 0, err
	}
	now := s.now()
	inserted := 0
	for _, h := range hints {
		if h.Symptom == "" {
			continue
		}
		if hasPendingOn(logs, h.Symptom, now) {
			continue
		}
		logs = append(logs, PendingSymptomEvent{
			Symptom:     h.Symptom,
			Timestamp:   now,
			Status:      EventPending,
			LogMethod:   LogMethodAuto,
			ChatContext: h.MessageContext,
			Extra:       h.Extra,
		})
		inserted++
	}
	if inserted > 0 {
		b, err := json.Marshal(logs)
		if err != nil {
			return 0, err
		}
		if err := s.store.SetState(userID, NamespacePendingLogs, string(b)); err != nil {
			return 0, err
		}
	}
	s.notify(userID)
	return inserted, nil
}

// ListPending returns the pending events in insertion order. Missing or
// malformed state reads as empty.
func (s *SymptomLogService) ListPending(userID string) ([]PendingSymptomEvent, error) {
	raw, ok, err := s.store.GetState(userID, NamespacePendingLogs)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var logs []PendingSymptomEvent
	if err := json.Unmarshal([]byte(raw), &logs); err != nil {
		return nil, nil
	}
	return logs, nil
}

func (s *SymptomLogService) notify(userID string) {
	s.mu.Lock()
	obs := append(([]func(string))(nil), s.observers...)
	s.mu.Unlock()
	for _, fn := range obs {
		fn(userID)
	}
}

func hasPendingOn(logs []PendingSymptomEvent, symptom string, day time.Time) bool {
	for _, log := range logs {
		if log.Status == EventPending && log.Symptom == symptom && sameCalendarDay(log.Timestamp, day) {
			return true
		}
	}
	return false
}

// sameCalendarDay compares local year-month-day, matching how a user
// experiences "today".
func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}

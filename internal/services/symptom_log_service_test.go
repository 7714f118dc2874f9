package services

import (
	"testing"
	"time"
)

func TestRecordDetectionsDedupSameDay(t *testing.T) {
	svc := NewSymptomLogService(newStubStateStore())
	svc.now = func() time.Time { return time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC) }

	n, err := svc.RecordDetections("u1", []DetectionHint{
		{Symptom: "hot flashes", MessageContext: "woke up sweating"},
	})
	if err != nil || n != 1 {
		t.Fatalf("first batch: n=%d err=%v", n, err)
	}

	// Same symptom later the same day is skipped.
	svc.now = func() time.Time { return time.Date(2025, 6, 3, 21, 30, 0, 0, time.UTC) }
	n, err = svc.RecordDetections("u1", []DetectionHint{
		{Symptom: "hot flashes", MessageContext: "again this evening"},
	})
	if err != nil || n != 0 {
		t.Fatalf("duplicate batch: n=%d err=%v", n, err)
	}

	logs, _ := svc.ListPending("u1")
	if len(logs) != 1 {
		t.Fatalf("expected 1 pending event, got %d", len(logs))
	}
	if logs[0].ChatContext != "woke up sweating" {
		t.Fatalf("duplicate must not update the existing event: %+v", logs[0])
	}
}

func TestRecordDetectionsSeparateDays(t *testing.T) {
	svc := NewSymptomLogService(newStubStateStore())
	svc.now = func() time.Time { return time.Date(2025, 6, 3, 23, 0, 0, 0, time.UTC) }
	if _, err := svc.RecordDetections("u1", []DetectionHint{{Symptom: "sleep problems"}}); err != nil {
		t.Fatalf("RecordDetections error: %v", err)
	}

	svc.now = func() time.Time { return time.Date(2025, 6, 4, 1, 0, 0, 0, time.UTC) }
	n, err := svc.RecordDetections("u1", []DetectionHint{{Symptom: "sleep problems"}})
	if err != nil || n != 1 {
		t.Fatalf("next day: n=%d err=%v", n, err)
	}

	logs, _ := svc.ListPending("u1")
	if len(logs) != 2 {
		t.Fatalf("expected 2 pending events, got %d", len(logs))
	}
}

func TestRecordDetectionsFields(t *testing.T) {
	svc := NewSymptomLogService(newStubStateStore())
	at := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }

	_, err := svc.RecordDetections("u1", []DetectionHint{{
		Symptom:        "mood swings",
		MessageContext: "I cried at work today",
		Extra:          map[string]string{"confidence": "high"},
	}})
	if err != nil {
		t.Fatalf("RecordDetections error: %v", err)
	}

	logs, _ := svc.ListPending("u1")
	if len(logs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(logs))
	}
	got := logs[0]
	if got.Status != EventPending || got.LogMethod != LogMethodAuto {
		t.Fatalf("unexpected lifecycle fields: %+v", got)
	}
	if !got.Timestamp.Equal(at) {
		t.Fatalf("timestamp=%v, want %v", got.Timestamp, at)
	}
	if got.ChatContext != "I cried at work today" || got.Extra["confidence"] != "high" {
		t.Fatalf("detector fields not carried through: %+v", got)
	}
}

func TestRecordDetectionsNotifiesEvenOnNoop(t *testing.T) {
	svc := NewSymptomLogService(newStubStateStore())
	svc.now = func() time.Time { return time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC) }

	var notified []string
	svc.Subscribe(func(uid string) { notified = append(notified, uid) })

	hints := []DetectionHint{{Symptom: "hot flashes"}}
	if _, err := svc.RecordDetections("u1", hints); err != nil {
		t.Fatalf("RecordDetections error: %v", err)
	}
	// All-duplicate batch still notifies.
	if _, err := svc.RecordDetections("u1", hints); err != nil {
		t.Fatalf("RecordDetections error: %v", err)
	}
	if len(notified) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notified))
	}

	// An empty batch never notifies.
	if _, err := svc.RecordDetections("u1", nil); err != nil {
		t.Fatalf("RecordDetections error: %v", err)
	}
	if len(notified) != 2 {
		t.Fatalf("empty batch must not notify, got %d", len(notified))
	}
}

func TestListPendingMalformedFailsOpen(t *testing.T) {
	store := newStubStateStore()
	_ = store.SetState("u1", NamespacePendingLogs, "][")
	svc := NewSymptomLogService(store)

	logs, err := svc.ListPending("u1")
	if err != nil || len(logs) != 0 {
		t.Fatalf("malformed state should read as empty: logs=%v err=%v", logs, err)
	}
}

func TestRecordDetectionsBatchOrder(t *testing.T) {
	svc := NewSymptomLogService(newStubStateStore())
	svc.now = func() time.Time { return time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC) }

	n, err := svc.RecordDetections("u1", []DetectionHint{
		{Symptom: "hot flashes"},
		{Symptom: "joint pain"},
		{Symptom: "hot flashes"}, // duplicate within the batch
	})
	if err != nil || n != 2 {
		t.Fatalf("n=%d err=%v, want 2 inserts", n, err)
	}
	logs, _ := svc.ListPending("u1")
	if len(logs) != 2 || logs[0].Symptom != "hot flashes" || logs[1].Symptom != "joint pain" {
		t.Fatalf("insertion order not preserved: %+v", logs)
	}
}

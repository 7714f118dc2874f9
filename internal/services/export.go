package services

import (
	"bytes"
	"encoding/csv"
	"time"
)

// ExportPendingLogsCSV renders the pending symptom log in long format for
// the review dashboard's download.
func ExportPendingLogsCSV(events []PendingSymptomEvent) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"symptom", "timestamp", "status", "log_method", "chat_context"})
	for _, e := range events {
		rec := []string{
			e.Symptom,
			e.Timestamp.Format(time.RFC3339),
			string(e.Status),
			string(e.LogMethod),
			e.ChatContext,
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

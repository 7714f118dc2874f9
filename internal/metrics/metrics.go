// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector counts the engine's externally interesting events: chat turns
// by outcome, symptom detections and completed baseline assessments.
type Collector struct {
	chatTurns            *prometheus.CounterVec
	detectionsRecorded   prometheus.Counter
	assessmentsCompleted prometheus.Counter
	pendingLogUpdates    prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		chatTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thalia_chat_turns_total",
			Help: "Chat turns by outcome (ok, fallback, rejected).",
		}, []string{"outcome"}),
		detectionsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thalia_symptom_detections_total",
			Help: "Symptom events appended to pending logs.",
		}),
		assessmentsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thalia_assessments_completed_total",
			Help: "Baseline assessments scored and saved.",
		}),
		pendingLogUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thalia_pending_log_updates_total",
			Help: "Pending-log change notifications fired.",
		}),
	}
	reg.MustRegister(c.chatTurns, c.detectionsRecorded, c.assessmentsCompleted, c.pendingLogUpdates)
	return c
}

func (c *Collector) RecordChatTurn(outcome string) {
	c.chatTurns.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordDetections(count int) {
	c.detectionsRecorded.Add(float64(count))
}

func (c *Collector) RecordAssessmentCompleted() {
	c.assessmentsCompleted.Inc()
}

func (c *Collector) RecordPendingLogUpdate() {
	c.pendingLogUpdates.Inc()
}

// Handler returns the scrape endpoint for the given gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

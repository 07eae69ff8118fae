package logging

import "time"

// AuditRecord is the structure written to the audit trail for every
// calculation request.
type AuditRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	RequestID      string    `json:"request_id"`
	CallerIdentity string    `json:"caller_identity"`
	Tier           string    `json:"tier"`
	CalculatorID   string    `json:"calculator_id"`
	Inputs         any       `json:"inputs,omitempty"`
	Allowed        bool      `json:"allowed"`
	StatusCode     int       `json:"status_code"`
	Error          string    `json:"error,omitempty"`
	DurationMs     int64     `json:"duration_ms"`
}

// Sink receives audit records from the API layer.
type Sink interface {
	Enqueue(rec *AuditRecord) error
}

// NoopSink discards audit records. Used when the audit trail is disabled.
type NoopSink struct{}

func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (s *NoopSink) Enqueue(rec *AuditRecord) error {
	return nil
}

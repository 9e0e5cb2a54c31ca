package v1

import (
	"encoding/json"
	"errors"
	"time"
)

// Envelope is the versioned event envelope published by crystalgive services.
// Fields may be added; existing fields keep their names and meaning.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id,omitempty"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

var (
	ErrIncompleteEnvelope  = errors.New("envelope requires event_id, event_type and schema_version")
	ErrMissingPartitionKey = errors.New("envelope names a partition_key_path but carries no partition_key")
)

// Validate rejects envelopes a consumer could not route or dedupe. Events that
// declare a partition path must be keyed so per-partition order holds.
func (e Envelope) Validate() error {
	if e.EventID == "" || e.EventType == "" || e.SchemaVersion < 1 {
		return ErrIncompleteEnvelope
	}
	if e.PartitionKeyPath != "" && e.PartitionKey == "" {
		return ErrMissingPartitionKey
	}
	return nil
}

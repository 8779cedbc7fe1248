package kafka

import (
	"encoding/json"
	"time"
)

// Sync event types emitted by the connector pipeline.
const (
	SyncEventCompleted = "sync.completed"
	SyncEventImported  = "import.completed"
)

// Person event types emitted by this service.
const (
	PersonEventMerged  = "person.merged"
	PersonEventDeleted = "person.deleted"
)

// SyncEvent is the message shape consumed from the sync topic. A
// completed connector sync or CSV import names the workspace whose
// contacts changed.
type SyncEvent struct {
	EventType   string    `json:"event_type"`
	WorkspaceID string    `json:"workspace_id"`
	Source      string    `json:"source,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ParseSyncEvent parses a raw message value as a SyncEvent.
func ParseSyncEvent(value []byte) (*SyncEvent, error) {
	var event SyncEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// TriggersScan reports whether the event should kick off a duplicate
// scan for its workspace.
func (e *SyncEvent) TriggersScan() bool {
	if e.WorkspaceID == "" {
		return false
	}
	return e.EventType == SyncEventCompleted || e.EventType == SyncEventImported
}

// PersonEvent is the message shape produced on the person topic.
type PersonEvent struct {
	EventType   string    `json:"event_type"`
	WorkspaceID string    `json:"workspace_id"`
	PersonID    string    `json:"person_id"`
	MergedFrom  string    `json:"merged_from,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

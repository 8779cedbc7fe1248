package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSyncEvent(t *testing.T) {
	t.Run("valid event", func(t *testing.T) {
		raw := []byte(`{"event_type":"sync.completed","workspace_id":"00000000-0000-0000-0000-00000000aaaa","source":"gmail"}`)

		event, err := ParseSyncEvent(raw)
		require.NoError(t, err)
		assert.Equal(t, SyncEventCompleted, event.EventType)
		assert.Equal(t, "00000000-0000-0000-0000-00000000aaaa", event.WorkspaceID)
		assert.Equal(t, "gmail", event.Source)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := ParseSyncEvent([]byte(`not json`))
		assert.Error(t, err)
	})
}

func TestSyncEvent_TriggersScan(t *testing.T) {
	t.Run("sync completed", func(t *testing.T) {
		e := &SyncEvent{EventType: SyncEventCompleted, WorkspaceID: "w"}
		assert.True(t, e.TriggersScan())
	})

	t.Run("import completed", func(t *testing.T) {
		e := &SyncEvent{EventType: SyncEventImported, WorkspaceID: "w"}
		assert.True(t, e.TriggersScan())
	})

	t.Run("unknown event type", func(t *testing.T) {
		e := &SyncEvent{EventType: "contact.viewed", WorkspaceID: "w"}
		assert.False(t, e.TriggersScan())
	})

	t.Run("missing workspace", func(t *testing.T) {
		e := &SyncEvent{EventType: SyncEventCompleted}
		assert.False(t, e.TriggersScan())
	})
}

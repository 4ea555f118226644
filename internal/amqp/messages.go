package amqp

import (
	"encoding/json"
	"time"
)

// Sync operations carried by queue messages.
const (
	OperationSync   = "sync"
	OperationDelete = "delete"
)

// RecordSyncMessage wakes the sync worker for one local record. It carries
// only identifiers; the worker reads the current row from the local store,
// so a burst of edits collapses into one upload of the latest state.
type RecordSyncMessage struct {
	RecordID  string    `json:"record_id"`
	OwnerID   string    `json:"owner_id"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordSyncMessage(recordID, ownerID, operation string) *RecordSyncMessage {
	return &RecordSyncMessage{
		RecordID:  recordID,
		OwnerID:   ownerID,
		Operation: operation,
		Timestamp: time.Now(),
	}
}

func (m *RecordSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordSyncMessageFromJSON(data []byte) (*RecordSyncMessage, error) {
	var msg RecordSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

package amqp

import (
	"encoding/json"
	"time"
)

// SnapshotSavedMessage announces a document save archived under ID.
// Consumers fetch the snapshot itself from the archive.
type SnapshotSavedMessage struct {
	ID        int64     `json:"id"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSnapshotSavedMessage(id int64, version string) *SnapshotSavedMessage {
	return &SnapshotSavedMessage{
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SnapshotSavedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SnapshotSavedMessageFromJSON(data []byte) (*SnapshotSavedMessage, error) {
	var msg SnapshotSavedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

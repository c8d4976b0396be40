package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"finform/internal/core"
)

// AnalysisRecordedMessage carries one journal record from the web app to the
// journal worker.
type AnalysisRecordedMessage struct {
	Record    core.AnalysisRecord `json:"record"`
	Timestamp time.Time           `json:"timestamp"`
}

func NewAnalysisRecordedMessage(rec core.AnalysisRecord) *AnalysisRecordedMessage {
	return &AnalysisRecordedMessage{
		Record:    rec,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *AnalysisRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AnalysisRecordedMessageFromJSON decodes a message and rejects records the
// journal could never store.
func AnalysisRecordedMessageFromJSON(data []byte) (*AnalysisRecordedMessage, error) {
	var msg AnalysisRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Record.ID == "" {
		return nil, fmt.Errorf("analysis recorded message: missing record id")
	}
	if !msg.Record.Outcome.Valid() {
		return nil, fmt.Errorf("analysis recorded message %s: unknown outcome %q", msg.Record.ID, msg.Record.Outcome)
	}
	return &msg, nil
}

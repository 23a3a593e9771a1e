package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MessageType discriminates the jobs carried on the queue.
type MessageType string

const (
	TypeBillNotification MessageType = "bill_notification"
	TypeSheetPublish     MessageType = "sheet_publish"
)

// Message is a lightweight job reference. It carries only the history entry
// ID plus routing details; the worker loads the calculation from the
// database.
type Message struct {
	Type       MessageType `json:"type"`
	HistoryID  string      `json:"history_id"`
	MemberName string      `json:"member_name,omitempty"`
	To         string      `json:"to,omitempty"`
	Month      string      `json:"month,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// NewBillNotificationMessage asks the worker to email one member's bill.
func NewBillNotificationMessage(historyID, memberName, to, month string) *Message {
	return &Message{
		Type:       TypeBillNotification,
		HistoryID:  historyID,
		MemberName: memberName,
		To:         to,
		Month:      month,
		Timestamp:  time.Now(),
	}
}

// NewSheetPublishMessage asks the worker to append a calculation to the
// spreadsheet.
func NewSheetPublishMessage(historyID string) *Message {
	return &Message{
		Type:      TypeSheetPublish,
		HistoryID: historyID,
		Timestamp: time.Now(),
	}
}

// Validate checks that the message can be handled.
func (m *Message) Validate() error {
	if m.HistoryID == "" {
		return errors.New("missing history_id")
	}
	switch m.Type {
	case TypeBillNotification:
		if m.MemberName == "" || m.To == "" {
			return errors.New("bill notification requires member_name and to")
		}
	case TypeSheetPublish:
	default:
		return fmt.Errorf("unknown message type %q", m.Type)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageFromJSON decodes and validates a message.
func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

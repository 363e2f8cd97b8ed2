package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType represents the type of a queued message
type MessageType string

const (
	MsgTypeAlert MessageType = "aqi_alert"
)

// AlertNotification is the message format for alert e-mails queued on Kafka
type AlertNotification struct {
	Type      MessageType `json:"type"`
	Email     string      `json:"email"`
	Subject   string      `json:"subject"`
	Body      string      `json:"body"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewAlertNotification builds a notification message for one recipient
func NewAlertNotification(email, subject, body string) *AlertNotification {
	return &AlertNotification{
		Type:      MsgTypeAlert,
		Email:     email,
		Subject:   subject,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
}

// EncodeAlertNotification encodes an AlertNotification to JSON
func EncodeAlertNotification(n *AlertNotification) ([]byte, error) {
	return json.Marshal(n)
}

// DecodeAlertNotification decodes and validates an AlertNotification
func DecodeAlertNotification(data []byte) (*AlertNotification, error) {
	var n AlertNotification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	if n.Type != MsgTypeAlert {
		return nil, fmt.Errorf("unexpected message type: %q", n.Type)
	}
	if n.Email == "" {
		return nil, fmt.Errorf("alert notification without recipient")
	}
	return &n, nil
}

package amqp

import (
	"encoding/json"
	"time"
)

// AlertMessage carries one budget alert from the API process to the notify
// worker. The full text is embedded so the worker needs no database access.
type AlertMessage struct {
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Level     string    `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}

func NewAlertMessage(recipient, subject, body, level string) *AlertMessage {
	return &AlertMessage{
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		Level:     level,
		Timestamp: time.Now().UTC(),
	}
}

func (m *AlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AlertMessageFromJSON(data []byte) (*AlertMessage, error) {
	var msg AlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

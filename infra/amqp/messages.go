package amqp

import (
	"encoding/json"
	"time"

	"github.com/amirasaad/finboard/pkg/domain"
)

// AlertMessage is the body published for the out-of-process mailer.
type AlertMessage struct {
	Alert     domain.Alert `json:"alert"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewAlertMessage wraps an alert with the publish time.
func NewAlertMessage(a domain.Alert) *AlertMessage {
	return &AlertMessage{Alert: a, Timestamp: time.Now().UTC()}
}

// ToJSON converts the message to JSON bytes
func (m *AlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AlertMessageFromJSON creates a message from JSON bytes
func AlertMessageFromJSON(data []byte) (*AlertMessage, error) {
	var msg AlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

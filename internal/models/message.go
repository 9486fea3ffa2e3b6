package models

import "time"

type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// Message is one side of a conversation turn. Immutable once created.
// Seq orders messages that share a timestamp.
type Message struct {
	ID             string    `json:"id"`
	OrganisationID string    `json:"organisationId"`
	SessionID      string    `json:"sessionId"`
	Sender         Sender    `json:"sender"`
	Text           string    `json:"text"`
	Language       string    `json:"language,omitempty"`
	Intent         string    `json:"intent,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Seq            int64     `json:"seq"`
}

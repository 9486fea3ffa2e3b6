package chatreply

import (
	"botforge/internal/models"
)

// Input is the job variable set. organisationId may arrive as a string or a number.
type Input struct {
	OrganisationID models.FlexibleID `json:"organisationId"`
	Message        string            `json:"message"`
	Language       string            `json:"language,omitempty"`
	SessionID      string            `json:"sessionId,omitempty"`
	Welcome        bool              `json:"welcome,omitempty"`
}

type Output struct {
	SessionID    string          `json:"sessionId"`
	Reply        string          `json:"reply"`
	Intent       string          `json:"intent"`
	Confidence   float64         `json:"confidence"`
	Entities     []models.Entity `json:"entities"`
	QuickReplies []string        `json:"quickReplies"`
	Language     string          `json:"language"`
}

const inputSchema = `{
  "type": "object",
  "required": ["organisationId"],
  "properties": {
    "organisationId": {"type": ["string", "integer"]},
    "message": {"type": "string"},
    "language": {"type": "string", "maxLength": 16},
    "sessionId": {"type": "string", "maxLength": 64},
    "welcome": {"type": "boolean"}
  }
}`

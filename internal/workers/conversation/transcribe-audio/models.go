package transcribeaudio

import "botforge/internal/models"

// Input carries base64 audio. With an organisationId the transcript is also answered.
type Input struct {
	Audio          []byte            `json:"audio"`
	OrganisationID models.FlexibleID `json:"organisationId,omitempty"`
	SessionID      string            `json:"sessionId,omitempty"`
	Language       string            `json:"language,omitempty"`
}

type Output struct {
	Transcript           string   `json:"transcript"`
	TranscriptConfidence float64  `json:"transcriptConfidence"`
	Reply                string   `json:"reply,omitempty"`
	Intent               string   `json:"intent,omitempty"`
	Confidence           float64  `json:"confidence,omitempty"`
	QuickReplies         []string `json:"quickReplies,omitempty"`
	SessionID            string   `json:"sessionId,omitempty"`
}

const inputSchema = `{
  "type": "object",
  "required": ["audio"],
  "properties": {
    "audio": {"type": "string", "minLength": 1, "contentEncoding": "base64"},
    "organisationId": {"type": ["string", "integer", "null"]},
    "sessionId": {"type": "string", "maxLength": 64},
    "language": {"type": "string", "maxLength": 16}
  }
}`

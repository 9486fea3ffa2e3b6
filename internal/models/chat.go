package models

// ChatRequest is the inbound text turn.
type ChatRequest struct {
	OrganisationID FlexibleID `json:"organisationId" validate:"required"`
	Message        string `json:"message" validate:"required"`
	Language       string `json:"language,omitempty" validate:"omitempty,max=16"`
	SessionID      string `json:"sessionId,omitempty" validate:"omitempty,max=64"`
}

type ChatResponse struct {
	SessionID    string   `json:"sessionId"`
	Reply        string   `json:"reply"`
	Intent       string   `json:"intent"`
	Confidence   float64  `json:"confidence"`
	Entities     []Entity `json:"entities"`
	QuickReplies []string `json:"quickReplies"`
	Language     Language `json:"language"`
}

type WelcomeRequest struct {
	OrganisationID FlexibleID `json:"organisationId" validate:"required"`
	Language       string `json:"language,omitempty" validate:"omitempty,max=16"`
	SessionID      string `json:"sessionId,omitempty" validate:"omitempty,max=64"`
}

// Transcription is the recognizer output. Confidence is 0.0 whenever no words were scored.
type Transcription struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

type VoiceChatResponse struct {
	ChatResponse
	Transcript           string  `json:"transcript"`
	TranscriptConfidence float64 `json:"transcriptConfidence"`
}

type HistoryRequest struct {
	OrganisationID FlexibleID `json:"organisationId" validate:"required"`
	SessionID      string `json:"sessionId" validate:"required"`
	Limit          int    `json:"limit" validate:"gte=0,lte=500"`
}

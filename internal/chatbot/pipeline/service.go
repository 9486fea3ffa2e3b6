// Package pipeline turns an inbound message into a reply, intent and quick replies.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"botforge/internal/chatbot/conversation"
	"botforge/internal/chatbot/intent"
	"botforge/internal/chatbot/profile"
	"botforge/internal/chatbot/quickreplies"
	"botforge/internal/chatbot/render"
	"botforge/internal/chatbot/templates"
	"botforge/internal/common/config"
	apperrors "botforge/internal/common/errors"
	"botforge/internal/common/logger"
	"botforge/internal/common/metrics"
	"botforge/internal/common/observability"
	"botforge/internal/models"
)

var ErrSpeechDisabled = errors.New("SPEECH_DISABLED")

// Transcriber is the audio front end. It is optional.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (models.Transcription, error)
}

// Dependencies are the stages the service sequences. Transcriber and Conversation may be nil.
type Dependencies struct {
	Classifier   *intent.Classifier
	Profiles     *profile.Resolver
	Templates    *templates.Resolver
	QuickReplies *quickreplies.Resolver
	Transcriber  Transcriber
	Conversation conversation.Logger
	Observer     *observability.Observability
}

type Service struct {
	classifier     *intent.Classifier
	profiles       *profile.Resolver
	templates      *templates.Resolver
	replies        *quickreplies.Resolver
	transcriber    Transcriber
	conversation   conversation.Logger
	obs            *observability.Observability
	detectLanguage bool
	historyLimit   int
	logger         logger.Logger

	now   func() time.Time
	newID func() string
	seq   atomic.Int64
}

func NewService(deps Dependencies, cfg config.PipelineConfig, historyLimit int, log logger.Logger) *Service {
	s := &Service{
		classifier:     deps.Classifier,
		profiles:       deps.Profiles,
		templates:      deps.Templates,
		replies:        deps.QuickReplies,
		transcriber:    deps.Transcriber,
		conversation:   deps.Conversation,
		obs:            deps.Observer,
		detectLanguage: cfg.DetectLanguage,
		historyLimit:   historyLimit,
		logger:         log.WithFields(map[string]interface{}{"component": "pipeline"}),
		now:            func() time.Time { return time.Now().UTC() },
		newID:          func() string { return uuid.NewString() },
	}
	if s.conversation == nil {
		s.conversation = conversation.NopLogger{}
	}
	if s.obs == nil {
		s.obs = observability.NewNoop()
	}
	if s.historyLimit <= 0 {
		s.historyLimit = 50
	}
	s.seq.Store(time.Now().UnixNano())
	return s
}

// resolved is what every reply needs to know about the organisation.
type resolved struct {
	orgID    *int64
	profile  models.Profile
	industry models.Industry
}

func (s *Service) resolveOrganisation(ctx context.Context, rawID string) resolved {
	ctx, end := s.obs.StartStage(ctx, "profile", attribute.String("organisation.id", rawID))

	p, err := s.profiles.Resolve(ctx, rawID)
	switch {
	case err == nil:
	case errors.Is(err, profile.ErrNotFound):
		s.logger.Debug("organisation not found, using default content", map[string]interface{}{"organisationId": rawID})
		err = nil
	default:
		s.logger.Warn("profile unavailable, using default content", map[string]interface{}{
			"organisationId": rawID,
			"error":          err,
		})
	}
	end(err)

	prof := profile.OrEmpty(p, err)
	out := resolved{profile: prof, industry: prof.Industry()}
	if id, ok := profile.ParseOrganisationID(rawID); ok {
		out.orgID = &id
	}
	return out
}

// Chat classifies the message and builds the reply for one text turn.
func (s *Service) Chat(ctx context.Context, req models.ChatRequest) (resp *models.ChatResponse, err error) {
	start := time.Now()
	defer func() { s.observe("chat", start, err) }()

	message := strings.TrimSpace(req.Message)
	orgID := strings.TrimSpace(string(req.OrganisationID))
	if message == "" {
		return nil, apperrors.NewValidationError("message is required")
	}
	if orgID == "" {
		return nil, apperrors.NewValidationError("organisationId is required")
	}
	sessionID := s.sessionID(req.SessionID)

	ictx, end := s.obs.StartStage(ctx, "intent", attribute.String("intent.strategy", s.classifier.Strategy()))
	result := s.classifier.Parse(ictx, message)
	end(nil)

	org := s.resolveOrganisation(ctx, orgID)
	lang := s.resolveLanguage(req.Language, org.profile, message)

	tctx, end := s.obs.StartStage(ctx, "template", attribute.String("intent", result.Intent))
	template := s.templates.Resolve(tctx, org.orgID, string(org.industry), result.Intent)
	end(nil)

	reply := render.Render(template, org.profile, result.Entities)

	qctx, end := s.obs.StartStage(ctx, "quick_replies", attribute.String("language", string(lang)))
	suggestions := s.replies.Resolve(qctx, org.orgID, string(org.industry), result.Intent, string(lang))
	end(nil)

	now := s.now()
	s.record(ctx, models.Message{
		ID: s.newID(), OrganisationID: orgID, SessionID: sessionID,
		Sender: models.SenderUser, Text: message, Language: string(lang), Timestamp: now,
	})
	s.record(ctx, models.Message{
		ID: s.newID(), OrganisationID: orgID, SessionID: sessionID,
		Sender: models.SenderAgent, Text: reply, Language: string(lang), Intent: result.Intent, Timestamp: now,
	})

	s.logger.Info("chat reply resolved", map[string]interface{}{
		"organisationId": orgID,
		"sessionId":      sessionID,
		"intent":         result.Intent,
		"confidence":     result.Confidence,
		"industry":       string(org.industry),
		"language":       string(lang),
	})

	return &models.ChatResponse{
		SessionID:    sessionID,
		Reply:        reply,
		Intent:       result.Intent,
		Confidence:   result.Confidence,
		Entities:     result.Entities,
		QuickReplies: suggestions,
		Language:     lang,
	}, nil
}

// Welcome opens a session with the organisation's greeting. A configured welcome message
// takes precedence over the greeting template.
func (s *Service) Welcome(ctx context.Context, req models.WelcomeRequest) (resp *models.ChatResponse, err error) {
	start := time.Now()
	defer func() { s.observe("welcome", start, err) }()

	orgID := strings.TrimSpace(string(req.OrganisationID))
	if orgID == "" {
		return nil, apperrors.NewValidationError("organisationId is required")
	}
	sessionID := s.sessionID(req.SessionID)

	org := s.resolveOrganisation(ctx, orgID)
	lang := s.resolveLanguage(req.Language, org.profile, "")

	template := org.profile.String("welcome_message")
	if strings.TrimSpace(template) == "" {
		template = s.templates.Resolve(ctx, org.orgID, string(org.industry), models.IntentGreeting)
	}
	reply := render.Render(template, org.profile, nil)
	suggestions := s.replies.Resolve(ctx, org.orgID, string(org.industry), models.IntentGreeting, string(lang))

	s.record(ctx, models.Message{
		ID: s.newID(), OrganisationID: orgID, SessionID: sessionID,
		Sender: models.SenderAgent, Text: reply, Language: string(lang), Intent: models.IntentGreeting, Timestamp: s.now(),
	})

	return &models.ChatResponse{
		SessionID:    sessionID,
		Reply:        reply,
		Intent:       models.IntentGreeting,
		Confidence:   1.0,
		Entities:     []models.Entity{},
		QuickReplies: suggestions,
		Language:     lang,
	}, nil
}

// Transcribe converts audio to text without replying.
func (s *Service) Transcribe(ctx context.Context, audio []byte) (out models.Transcription, err error) {
	start := time.Now()
	defer func() { s.observe("transcribe", start, err) }()

	if s.transcriber == nil {
		return models.Transcription{}, apperrors.NewModelUnavailableError("speech", ErrSpeechDisabled)
	}

	ctx, end := s.obs.StartStage(ctx, "transcribe", attribute.Int("audio.bytes", len(audio)))
	out, err = s.transcriber.Transcribe(ctx, audio)
	end(err)
	return out, err
}

// VoiceChat transcribes audio and answers the transcript like a text turn.
func (s *Service) VoiceChat(ctx context.Context, orgID string, audio []byte, sessionID, language string) (*models.VoiceChatResponse, error) {
	if strings.TrimSpace(orgID) == "" {
		return nil, apperrors.NewValidationError("organisationId is required")
	}

	t, err := s.Transcribe(ctx, audio)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(t.Text) == "" {
		return nil, apperrors.NewValidationError("could not understand audio")
	}

	resp, err := s.Chat(ctx, models.ChatRequest{
		OrganisationID: models.FlexibleID(orgID),
		Message:        t.Text,
		Language:       language,
		SessionID:      sessionID,
	})
	if err != nil {
		return nil, err
	}

	return &models.VoiceChatResponse{
		ChatResponse:         *resp,
		Transcript:           t.Text,
		TranscriptConfidence: t.Confidence,
	}, nil
}

// History returns the logged messages of one session, oldest first.
func (s *Service) History(ctx context.Context, req models.HistoryRequest) ([]models.Message, error) {
	if strings.TrimSpace(string(req.OrganisationID)) == "" || strings.TrimSpace(req.SessionID) == "" {
		return nil, apperrors.NewValidationError("organisationId and sessionId are required")
	}
	limit := req.Limit
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}

	msgs, err := s.conversation.History(ctx, string(req.OrganisationID), req.SessionID, limit)
	if err != nil {
		return nil, apperrors.NewStoreQueryFailedError("conversation_history", err)
	}
	return msgs, nil
}

func (s *Service) sessionID(requested string) string {
	if id := strings.TrimSpace(requested); id != "" {
		return id
	}
	return s.newID()
}

// record never fails the turn.
func (s *Service) record(ctx context.Context, msg models.Message) {
	msg.Seq = s.seq.Add(1)
	if err := s.conversation.Append(ctx, msg); err != nil {
		s.logger.Warn("failed to log conversation message", map[string]interface{}{
			"sessionId": msg.SessionID,
			"sender":    msg.Sender,
			"error":     err,
		})
	}
}

func (s *Service) observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = string(apperrors.AsStandard(err).Code)
	}
	metrics.ChatRequests.WithLabelValues(operation, status).Inc()
	metrics.ChatDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

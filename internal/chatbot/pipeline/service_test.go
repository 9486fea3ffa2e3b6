package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"botforge/internal/chatbot/conversation"
	"botforge/internal/chatbot/intent"
	"botforge/internal/chatbot/profile"
	"botforge/internal/chatbot/quickreplies"
	"botforge/internal/chatbot/templates"
	"botforge/internal/common/config"
	apperrors "botforge/internal/common/errors"
	"botforge/internal/common/logger"
	"botforge/internal/common/observability"
	"botforge/internal/models"
	"botforge/pkg/registry"
)

func testPack() *registry.ContentPack {
	overlay := &registry.ContentPack{
		Version: "test",
		Organisations: []registry.Organisation{
			{
				ID:       7,
				Name:     "Harbour Bistro",
				Industry: "restaurant",
				Attributes: map[string]interface{}{
					"business_hours": "10am–10pm",
					"location":       "12 Quay St",
					"contact_email":  "hello@harbour.test",
				},
			},
			{
				ID:              9,
				Name:            "Lycée Lumière",
				Industry:        "Education",
				PrimaryLanguage: "fr",
				WelcomeMessage:  "Bienvenue chez {{company_name}} !",
			},
		},
	}
	return registry.Merge(registry.DefaultPack(), overlay)
}

type stubTranscriber struct {
	out models.Transcription
	err error
}

func (s stubTranscriber) Transcribe(context.Context, []byte) (models.Transcription, error) {
	return s.out, s.err
}

type brokenProvider struct{}

func (brokenProvider) GetProfile(context.Context, int64) (models.Profile, error) {
	return nil, apperrors.NewStoreQueryFailedError("profile", errors.New("connection refused"))
}

type brokenConversation struct{ conversation.NopLogger }

func (brokenConversation) Append(context.Context, models.Message) error {
	return conversation.ErrAppendFailed
}

type options struct {
	provider     profile.Provider
	transcriber  Transcriber
	conversation conversation.Logger
	detect       bool
	log          logger.Logger
}

func newTestService(t *testing.T, opts options) *Service {
	t.Helper()
	log := opts.log
	if log == nil {
		log = logger.NewTestLogger(t)
	}
	pack := testPack()
	store := registry.NewMemoryStore(pack)

	strategy, err := intent.NewKeywordStrategy(nil, intent.NewEntityExtractor())
	require.NoError(t, err)

	tmpl, err := templates.NewResolver(context.Background(), log, store)
	require.NoError(t, err)

	provider := opts.provider
	if provider == nil {
		provider = store
	}

	replies, err := quickreplies.NewResolver(log, pack.Exclusions, store)
	require.NoError(t, err)

	svc := NewService(Dependencies{
		Classifier:   intent.NewClassifier(strategy, log),
		Profiles:     profile.NewResolver(provider, log),
		Templates:    tmpl,
		QuickReplies: replies,
		Transcriber:  opts.transcriber,
		Conversation: opts.conversation,
		Observer:     observability.NewNoop(),
	}, config.PipelineConfig{DetectLanguage: opts.detect}, 20, log)

	var n int
	svc.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return svc
}

func TestChat(t *testing.T) {
	tests := []struct {
		name        string
		req         models.ChatRequest
		wantIntent  string
		wantReply   string
		wantReplies []string
		wantLang    models.Language
	}{
		{
			name:       "organisation content with profile substitution",
			req:        models.ChatRequest{OrganisationID: "7", Message: "What are your opening hours?"},
			wantIntent: "business_hours",
			wantReply:  "🍽️ Harbour Bistro is open from 10am–10pm at 12 Quay St.",
			wantReplies: []string{
				"Pricing", "Business hours", "Contact support", "Make a reservation", "Menu", "Location",
			},
			wantLang: models.LanguageEnglish,
		},
		{
			name:        "intent-specific quick replies drop excluded labels",
			req:         models.ChatRequest{OrganisationID: "7", Message: "Can I book a table for four?"},
			wantIntent:  "booking",
			wantReply:   "Sure! What date/time would you like to reserve, and how many pax?",
			wantReplies: []string{"Business hours", "Location"},
			wantLang:    models.LanguageEnglish,
		},
		{
			name:        "unknown organisation falls back to default content",
			req:         models.ChatRequest{OrganisationID: "999", Message: "Tell me a joke"},
			wantIntent:  models.IntentFallback,
			wantReply:   "Sorry — I’m not sure about that yet. Please contact {{contact_email}}.",
			wantReplies: quickreplies.DefaultReplies[models.LanguageEnglish],
			wantLang:    models.LanguageEnglish,
		},
		{
			name:        "non-numeric organisation id is treated as unknown",
			req:         models.ChatRequest{OrganisationID: "abc", Message: "Tell me a joke"},
			wantIntent:  models.IntentFallback,
			wantReply:   "Sorry — I’m not sure about that yet. Please contact {{contact_email}}.",
			wantReplies: quickreplies.DefaultReplies[models.LanguageEnglish],
			wantLang:    models.LanguageEnglish,
		},
		{
			name:        "organisation primary language selects quick replies",
			req:         models.ChatRequest{OrganisationID: "9", Message: "Tell me a joke"},
			wantIntent:  models.IntentFallback,
			wantReply:   "Sorry — I’m not sure about that. Please reach out at <contact_email>.",
			wantReplies: quickreplies.DefaultReplies[models.LanguageFrench],
			wantLang:    models.LanguageFrench,
		},
		{
			name:        "request language wins over profile",
			req:         models.ChatRequest{OrganisationID: "9", Message: "Tell me a joke", Language: "chinese"},
			wantIntent:  models.IntentFallback,
			wantReply:   "Sorry — I’m not sure about that. Please reach out at <contact_email>.",
			wantReplies: quickreplies.DefaultReplies[models.LanguageChinese],
			wantLang:    models.LanguageChinese,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, options{})

			resp, err := svc.Chat(context.Background(), tt.req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantIntent, resp.Intent)
			assert.Equal(t, tt.wantReply, resp.Reply)
			assert.Equal(t, tt.wantReplies, resp.QuickReplies)
			assert.Equal(t, tt.wantLang, resp.Language)
			assert.GreaterOrEqual(t, resp.Confidence, 0.0)
			assert.LessOrEqual(t, resp.Confidence, 1.0)
			assert.NotNil(t, resp.Entities)
		})
	}
}

func TestChat_Validation(t *testing.T) {
	svc := newTestService(t, options{})

	tests := []struct {
		name string
		req  models.ChatRequest
	}{
		{"blank message", models.ChatRequest{OrganisationID: "7", Message: "   "}},
		{"missing organisation", models.ChatRequest{Message: "hello"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Chat(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
		})
	}
}

func TestChat_SessionAndConversationLog(t *testing.T) {
	convo := conversation.NewMemoryLogger(10)
	svc := newTestService(t, options{conversation: convo})
	ctx := context.Background()

	first, err := svc.Chat(ctx, models.ChatRequest{OrganisationID: "7", Message: "hello there"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", first.SessionID)
	assert.Equal(t, models.IntentGreeting, first.Intent)

	second, err := svc.Chat(ctx, models.ChatRequest{OrganisationID: "7", Message: "Where are you located?", SessionID: first.SessionID})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	history, err := svc.History(ctx, models.HistoryRequest{OrganisationID: "7", SessionID: first.SessionID})
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, models.SenderUser, history[0].Sender)
	assert.Equal(t, "hello there", history[0].Text)
	assert.Equal(t, models.SenderAgent, history[3].Sender)
	assert.Equal(t, "location", history[3].Intent)
	assert.Equal(t, "Harbour Bistro is located at 12 Quay St.", history[3].Text)
	// a turn's message and reply share a timestamp; seq keeps them in order
	assert.Equal(t, history[0].Timestamp, history[1].Timestamp)
	for i := 1; i < len(history); i++ {
		assert.Greater(t, history[i].Seq, history[i-1].Seq)
	}

	limited, err := svc.History(ctx, models.HistoryRequest{OrganisationID: "7", SessionID: first.SessionID, Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, history[3].ID, limited[0].ID)
}

func TestChat_DegradesOnDependencyFailures(t *testing.T) {
	log, logs := logger.NewObservedLogger(zapcore.WarnLevel)
	svc := newTestService(t, options{provider: brokenProvider{}, conversation: brokenConversation{}, log: log})

	resp, err := svc.Chat(context.Background(), models.ChatRequest{OrganisationID: "7", Message: "What are your opening hours?"})
	require.NoError(t, err)
	assert.Equal(t, "business_hours", resp.Intent)
	// no profile means no substitution at all, placeholders stay verbatim
	assert.Equal(t, "Sorry — I’m not sure about that yet. Please contact {{contact_email}}.", resp.Reply)
	assert.Contains(t, resp.Reply, "{{contact_email}}")
	assert.NotContains(t, resp.Reply, "<contact_email>")

	assert.Equal(t, 1, logs.FilterMessage("profile unavailable, using default content").Len())
	assert.Equal(t, 2, logs.FilterMessage("failed to log conversation message").Len())
}

func TestWelcome(t *testing.T) {
	svc := newTestService(t, options{})
	ctx := context.Background()

	t.Run("configured welcome message", func(t *testing.T) {
		resp, err := svc.Welcome(ctx, models.WelcomeRequest{OrganisationID: "9"})
		require.NoError(t, err)
		assert.Equal(t, "Bienvenue chez Lycée Lumière !", resp.Reply)
		assert.Equal(t, models.IntentGreeting, resp.Intent)
		assert.Equal(t, 1.0, resp.Confidence)
		assert.Equal(t, models.LanguageFrench, resp.Language)
	})

	t.Run("industry greeting template", func(t *testing.T) {
		resp, err := svc.Welcome(ctx, models.WelcomeRequest{OrganisationID: "7", SessionID: "s-1"})
		require.NoError(t, err)
		assert.Equal(t, "Hi! Welcome to Harbour Bistro 😊 How can I help you today?", resp.Reply)
		assert.Equal(t, "s-1", resp.SessionID)
		assert.Contains(t, resp.QuickReplies, "Menu")
	})

	t.Run("unknown organisation", func(t *testing.T) {
		resp, err := svc.Welcome(ctx, models.WelcomeRequest{OrganisationID: "404"})
		require.NoError(t, err)
		assert.Equal(t, "Hi! How can I help you today?", resp.Reply)
	})

	t.Run("missing organisation", func(t *testing.T) {
		_, err := svc.Welcome(ctx, models.WelcomeRequest{})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
	})
}

func TestVoiceChat(t *testing.T) {
	ctx := context.Background()

	t.Run("answers the transcript", func(t *testing.T) {
		svc := newTestService(t, options{transcriber: stubTranscriber{
			out: models.Transcription{Text: "when do you close", Confidence: 0.87},
		}})

		resp, err := svc.VoiceChat(ctx, "7", []byte("RIFF"), "", "")
		require.NoError(t, err)
		assert.Equal(t, "when do you close", resp.Transcript)
		assert.InDelta(t, 0.87, resp.TranscriptConfidence, 1e-9)
		assert.Equal(t, "business_hours", resp.Intent)
		assert.NotEmpty(t, resp.SessionID)
	})

	t.Run("silence is rejected", func(t *testing.T) {
		svc := newTestService(t, options{transcriber: stubTranscriber{}})

		_, err := svc.VoiceChat(ctx, "7", []byte("RIFF"), "", "")
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
	})

	t.Run("transcriber errors pass through", func(t *testing.T) {
		svc := newTestService(t, options{transcriber: stubTranscriber{
			err: apperrors.NewDecodeError(errors.New("not audio")),
		}})

		_, err := svc.VoiceChat(ctx, "7", []byte("text"), "", "")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidAudioFormat))
	})

	t.Run("speech disabled", func(t *testing.T) {
		svc := newTestService(t, options{})

		_, err := svc.VoiceChat(ctx, "7", []byte("RIFF"), "", "")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeModelUnavailable))
		assert.ErrorIs(t, err, ErrSpeechDisabled)
	})

	t.Run("organisation checked before transcription", func(t *testing.T) {
		svc := newTestService(t, options{})

		_, err := svc.VoiceChat(ctx, " ", []byte("RIFF"), "", "")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
	})
}

func TestHistory_Validation(t *testing.T) {
	svc := newTestService(t, options{})

	_, err := svc.History(context.Background(), models.HistoryRequest{OrganisationID: "7"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}

func TestResolveLanguage_Detection(t *testing.T) {
	chinese := "你们今天几点开门？"

	on := newTestService(t, options{detect: true})
	assert.Equal(t, models.LanguageChinese, on.resolveLanguage("", models.Profile{}, chinese))
	assert.Equal(t, models.LanguageFrench, on.resolveLanguage("fr", models.Profile{}, chinese))
	assert.Equal(t, models.LanguageEnglish, on.resolveLanguage("", models.Profile{"primary_language": "english"}, chinese))

	off := newTestService(t, options{})
	assert.Equal(t, models.LanguageEnglish, off.resolveLanguage("", models.Profile{}, chinese))
}

package transcribeaudio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"botforge/internal/common/camunda"
	apperrors "botforge/internal/common/errors"
	"botforge/internal/common/logger"
	"botforge/internal/common/metrics"
	"botforge/internal/common/validation"
	"botforge/internal/models"
)

const TaskType = "transcribe-audio"

var ErrAudioTooLarge = errors.New("AUDIO_TOO_LARGE")

type SpeechService interface {
	Transcribe(ctx context.Context, audio []byte) (models.Transcription, error)
	VoiceChat(ctx context.Context, orgID string, audio []byte, sessionID, language string) (*models.VoiceChatResponse, error)
}

type Handler struct {
	config     *Config
	service    SpeechService
	schema     *validation.Schema
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, service SpeechService, log logger.Logger) (*Handler, error) {
	schema, err := validation.Compile(inputSchema)
	if err != nil {
		return nil, fmt.Errorf("compile %s input schema: %w", TaskType, err)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		service:    service,
		schema:     schema,
		errHandler: apperrors.NewErrorHandler(log),
		logger:     log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	defer func() {
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job.Variables)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if h.config.MaxAudioBytes > 0 && len(input.Audio) > h.config.MaxAudioBytes {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%v: %d bytes exceeds %d", ErrAudioTooLarge, len(input.Audio), h.config.MaxAudioBytes))
	}

	if input.OrganisationID == "" {
		t, err := h.service.Transcribe(ctx, input.Audio)
		if err != nil {
			return nil, err
		}
		h.logger.Info("audio transcribed", map[string]interface{}{
			"chars":      len(t.Text),
			"confidence": t.Confidence,
		})
		return &Output{Transcript: t.Text, TranscriptConfidence: t.Confidence}, nil
	}

	resp, err := h.service.VoiceChat(ctx, string(input.OrganisationID), input.Audio, input.SessionID, input.Language)
	if err != nil {
		return nil, err
	}
	h.logger.Info("voice turn answered", map[string]interface{}{
		"organisationId": string(input.OrganisationID),
		"intent":         resp.Intent,
	})
	return &Output{
		Transcript:           resp.Transcript,
		TranscriptConfidence: resp.TranscriptConfidence,
		Reply:                resp.Reply,
		Intent:               resp.Intent,
		Confidence:           resp.Confidence,
		QuickReplies:         resp.QuickReplies,
		SessionID:            resp.SessionID,
	}, nil
}

func (h *Handler) parseInput(variables string) (*Input, error) {
	result, err := h.schema.ValidateJSON(variables)
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("parse input: %v", err))
	}
	if !result.Valid {
		return nil, apperrors.NewValidationError(result.Error())
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.fail(ctx, client, job, apperrors.NewInternalError(err))
		return
	}

	err = camunda.ExecuteWithRetry(ctx, camunda.DefaultRetryConfig, "complete-job", func(ctx context.Context) error {
		_, err := cmd.Send(ctx)
		return err
	})
	if err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.AsStandard(err).Code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}

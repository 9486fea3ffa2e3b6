package chatreply

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/samber/lo"

	"botforge/internal/common/camunda"
	apperrors "botforge/internal/common/errors"
	"botforge/internal/common/logger"
	"botforge/internal/common/metrics"
	"botforge/internal/common/validation"
	"botforge/internal/models"
)

const TaskType = "chat-reply"

// ChatService answers one text turn or opens a session.
type ChatService interface {
	Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
	Welcome(ctx context.Context, req models.WelcomeRequest) (*models.ChatResponse, error)
}

type Handler struct {
	config     *Config
	service    ChatService
	schema     *validation.Schema
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, service ChatService, log logger.Logger) (*Handler, error) {
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

// Execute runs the pipeline for one job's variables.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	orgID := input.OrganisationID

	var (
		resp *models.ChatResponse
		err  error
	)
	if input.Welcome {
		resp, err = h.service.Welcome(ctx, models.WelcomeRequest{
			OrganisationID: orgID,
			Language:       input.Language,
			SessionID:      input.SessionID,
		})
	} else {
		resp, err = h.service.Chat(ctx, models.ChatRequest{
			OrganisationID: orgID,
			Message:        input.Message,
			Language:       input.Language,
			SessionID:      input.SessionID,
		})
	}
	if err != nil {
		return nil, err
	}

	h.logger.Info("chat reply resolved", map[string]interface{}{
		"organisationId": string(orgID),
		"intent":         resp.Intent,
		"confidence":     resp.Confidence,
	})

	return &Output{
		SessionID:    resp.SessionID,
		Reply:        resp.Reply,
		Intent:       resp.Intent,
		Confidence:   resp.Confidence,
		Entities:     lo.Ternary(resp.Entities == nil, []models.Entity{}, resp.Entities),
		QuickReplies: resp.QuickReplies,
		Language:     string(resp.Language),
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

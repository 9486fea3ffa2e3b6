package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	apperrors "botforge/internal/common/errors"
	"botforge/internal/models"
)

type errorBody struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

type chatBody struct {
	OK bool `json:"ok"`
	*models.ChatResponse
}

type voiceChatBody struct {
	OK bool `json:"ok"`
	*models.VoiceChatResponse
}

type transcriptionBody struct {
	OK bool `json:"ok"`
	models.Transcription
}

type historyBody struct {
	OK       bool             `json:"ok"`
	Messages []models.Message `json:"messages"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()

	resp, err := s.service.Chat(ctx, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatBody{OK: true, ChatResponse: resp})
}

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	var req models.WelcomeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()

	resp, err := s.service.Welcome(ctx, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatBody{OK: true, ChatResponse: resp})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	audio, _, err := s.readAudio(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()

	out, err := s.service.Transcribe(ctx, audio)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transcriptionBody{OK: true, Transcription: out})
}

// handleVoiceChat takes a multipart form with an "audio" file plus organisationId,
// and optional sessionId and language fields.
func (s *Server) handleVoiceChat(w http.ResponseWriter, r *http.Request) {
	audio, form, err := s.readAudio(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	req := models.WelcomeRequest{
		OrganisationID: models.FlexibleID(form("organisationId")),
		SessionID:      form("sessionId"),
		Language:       form("language"),
	}
	if err := s.validateStruct(req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()

	resp, err := s.service.VoiceChat(ctx, string(req.OrganisationID), audio, req.SessionID, req.Language)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, voiceChatBody{OK: true, VoiceChatResponse: resp})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := models.HistoryRequest{
		OrganisationID: models.FlexibleID(q.Get("organisationId")),
		SessionID:      q.Get("sessionId"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, apperrors.NewValidationError("limit must be an integer"))
			return
		}
		req.Limit = limit
	}
	if err := s.validateStruct(req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()

	msgs, err := s.service.History(ctx, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	writeJSON(w, http.StatusOK, historyBody{OK: true, Messages: msgs})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return s.validateStruct(dst)
}

func (s *Server) validateStruct(v interface{}) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError(err.Error())
	}
	msgs := lo.Map(fieldErrs, func(fe validator.FieldError, _ int) string {
		if fe.Tag() == "required" {
			return fe.Field() + " is required"
		}
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	})
	return apperrors.NewValidationError(strings.Join(msgs, "; "))
}

// readAudio accepts a multipart upload in the "audio" field or a raw audio body.
// The returned accessor reads the other form fields and is empty for raw bodies.
func (s *Server) readAudio(w http.ResponseWriter, r *http.Request) ([]byte, func(string) string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	noFields := func(string) string { return "" }

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		audio, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, noFields, uploadError(err)
		}
		return audio, noFields, nil
	}

	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		return nil, noFields, uploadError(err)
	}
	file, _, err := r.FormFile("audio")
	if err != nil {
		return nil, noFields, apperrors.NewValidationError("audio file is required")
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		return nil, noFields, uploadError(err)
	}
	return audio, func(key string) string { return strings.TrimSpace(r.FormValue(key)) }, nil
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.NewValidationError(fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
	}
	return apperrors.NewValidationError(fmt.Sprintf("unreadable upload: %v", err))
}

// writeError maps the error code to a status. Internal failures never leak their detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := apperrors.AsStandard(err)
	status := apperrors.HTTPStatus(stdErr.Code)

	message := stdErr.Message
	if stdErr.Details != "" && status < http.StatusInternalServerError {
		message = stdErr.Details
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", map[string]interface{}{
			"path":  r.URL.Path,
			"code":  string(stdErr.Code),
			"error": err,
		})
	}

	writeJSON(w, status, errorBody{Error: message, Code: string(stdErr.Code)})
}

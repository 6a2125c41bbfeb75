package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fredcamaral/prompteur/internal/domain/entities"
	"github.com/fredcamaral/prompteur/internal/domain/ports"
)

const maxBodySize = 2 << 20

var errUnavailable = errors.New("service not available")

// errorBody is the JSON shape of every failed request and of websocket
// error frames
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// stateResponse is returned by every mutating endpoint
type stateResponse struct {
	Success bool                    `json:"success"`
	State   entities.CanonicalState `json:"state"`
}

type renderResponse struct {
	HTML   string                `json:"html"`
	Slides []ports.RenderedSlide `json:"slides"`
}

type healthResponse struct {
	Status    string  `json:"status"`
	Clients   int     `json:"clients"`
	UptimeSec float64 `json:"uptimeSeconds"`
}

func newErrorBody(err error) errorBody {
	var ve *entities.ValidationError
	var pe *entities.PreconditionError
	switch {
	case errors.As(err, &ve):
		return errorBody{Error: "validation_error", Message: ve.Message, Field: ve.Field}
	case errors.As(err, &pe):
		return errorBody{Error: "precondition_failed", Message: pe.Error()}
	case errors.Is(err, errUnavailable):
		return errorBody{Error: "unavailable", Message: err.Error()}
	default:
		return errorBody{Error: "internal_error", Message: "Internal server error"}
	}
}

func statusFor(err error) int {
	switch {
	case entities.IsValidationError(err):
		return http.StatusBadRequest
	case entities.IsPreconditionError(err):
		return http.StatusConflict
	case errors.Is(err, errUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeError turns JSON decoding failures into validation errors
func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return entities.NewValidationError(field, "expected %s, got %s", typeErr.Type.String(), typeErr.Value)
	case errors.As(err, &syntaxErr):
		return entities.NewValidationError("body", "malformed JSON at offset %d", syntaxErr.Offset)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return entities.NewValidationError("body", "truncated JSON")
	default:
		return entities.NewValidationError("body", "%v", err)
	}
}

// decodeJSON reads r's body into dst. An empty body is accepted when
// optional is set.
func decodeJSON(r *http.Request, dst interface{}, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			if optional {
				return nil
			}
			return entities.NewValidationError("body", "request body is required")
		}
		return decodeError(err)
	}
	return nil
}

func required[T any](v *T, field string) (T, error) {
	if v == nil {
		var zero T
		return zero, entities.NewValidationError(field, "is required")
	}
	return *v, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	s.writeJSON(w, status, newErrorBody(err))
}

// respondState writes the outcome of a state operation
func (s *Server) respondState(w http.ResponseWriter, r *http.Request, state entities.CanonicalState, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stateResponse{Success: true, State: state})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.prompter.Snapshot())
}

func (s *Server) handleSetText(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text *string `json:"text"`
	}
	if err := decodeJSON(r, &body, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	text, err := required(body.Text, "text")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state, err := s.prompter.SetText(text)
	s.respondState(w, r, state, err)
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	action := mux.Vars(r)["action"]
	state, applied, err := s.prompter.Control(action)
	if err == nil && !applied {
		s.logger.Warn().Str("action", action).Msg("unknown control action")
	}
	s.respondState(w, r, state, err)
}

func (s *Server) handleSetSpeed(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Speed *float64 `json:"speed"`
	}
	if err := decodeJSON(r, &body, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	speed, err := required(body.Speed, "speed")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state, err := s.prompter.SetSpeed(speed)
	s.respondState(w, r, state, err)
}

type enabledBody struct {
	Enabled *bool `json:"enabled"`
}

// handleEnabled builds a handler for {enabled} endpoints
func (s *Server) handleEnabled(set func(bool) (entities.CanonicalState, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body enabledBody
		if err := decodeJSON(r, &body, false); err != nil {
			s.writeError(w, r, err)
			return
		}
		enabled, err := required(body.Enabled, "enabled")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		state, err := set(enabled)
		s.respondState(w, r, state, err)
	}
}

func (s *Server) handleToggleWebcam(w http.ResponseWriter, r *http.Request) {
	state, err := s.prompter.ToggleWebcam()
	s.respondState(w, r, state, err)
}

func (s *Server) handleWebcamOpacity(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Opacity *float64 `json:"opacity"`
	}
	if err := decodeJSON(r, &body, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	opacity, err := required(body.Opacity, "opacity")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state, err := s.prompter.SetWebcamOpacity(opacity)
	s.respondState(w, r, state, err)
}

func (s *Server) handleWebcamBlur(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Blur *float64 `json:"blur"`
	}
	if err := decodeJSON(r, &body, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	blur, err := required(body.Blur, "blur")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state, err := s.prompter.SetWebcamBlur(blur)
	s.respondState(w, r, state, err)
}

// handleTogglePresentation toggles, or sets when the body carries enabled
func (s *Server) handleTogglePresentation(w http.ResponseWriter, r *http.Request) {
	var body enabledBody
	if err := decodeJSON(r, &body, true); err != nil {
		s.writeError(w, r, err)
		return
	}

	var (
		state entities.CanonicalState
		err   error
	)
	if body.Enabled != nil {
		state, err = s.prompter.SetPresentation(*body.Enabled)
	} else {
		state, err = s.prompter.TogglePresentation()
	}
	s.respondState(w, r, state, err)
}

func (s *Server) handleNextSlide(w http.ResponseWriter, r *http.Request) {
	state, err := s.prompter.NextSlide()
	s.respondState(w, r, state, err)
}

func (s *Server) handlePrevSlide(w http.ResponseWriter, r *http.Request) {
	state, err := s.prompter.PrevSlide()
	s.respondState(w, r, state, err)
}

func (s *Server) handleGotoSlide(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Slide *int `json:"slide"`
	}
	if err := decodeJSON(r, &body, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	slide, err := required(body.Slide, "slide")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state, err := s.prompter.GotoSlide(slide)
	s.respondState(w, r, state, err)
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode *entities.DisplayMode `json:"mode"`
	}
	if err := decodeJSON(r, &body, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	mode, err := required(body.Mode, "mode")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state, err := s.prompter.SetMode(mode)
	s.respondState(w, r, state, err)
}

func (s *Server) handleChatStart(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		s.writeError(w, r, fmt.Errorf("chat feed: %w", errUnavailable))
		return
	}

	var body struct {
		LiveChatID string `json:"liveChatId"`
	}
	if err := decodeJSON(r, &body, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	// The loop must outlive the request
	if err := s.feed.Start(s.baseContext(), body.LiveChatID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "status": s.feed.Status()})
}

func (s *Server) handleChatStop(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		s.writeError(w, r, fmt.Errorf("chat feed: %w", errUnavailable))
		return
	}
	s.feed.Stop()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "status": s.feed.Status()})
}

func (s *Server) handleChatStatus(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		s.writeJSON(w, http.StatusOK, entities.FeedStatus{})
		return
	}
	s.writeJSON(w, http.StatusOK, s.feed.Status())
}

func (s *Server) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	messages := []entities.ChatMessage{}
	if s.feed != nil {
		messages = append(messages, s.feed.Recent()...)
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

// handleRender previews text as HTML. Without a body the current text is used.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if s.renderer == nil {
		s.writeError(w, r, fmt.Errorf("markdown renderer: %w", errUnavailable))
		return
	}

	var body struct {
		Text *string `json:"text"`
	}
	if err := decodeJSON(r, &body, true); err != nil {
		s.writeError(w, r, err)
		return
	}
	text := s.prompter.Snapshot().Text
	if body.Text != nil {
		text = *body.Text
	}

	start := time.Now()
	html, err := s.renderer.Render(text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	slides, err := s.renderer.RenderSlides(text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.RecordRender(time.Since(start))
	s.writeJSON(w, http.StatusOK, renderResponse{HTML: html, Slides: slides})
}

func (s *Server) handleAssistantCommands(w http.ResponseWriter, r *http.Request) {
	commands := []entities.AssistantCommand{}
	configured := false
	if s.assistant != nil {
		commands = append(commands, s.assistant.Commands()...)
		configured = s.assistant.IsConfigured()
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"configured": configured,
		"commands":   commands,
	})
}

// handleAssistantExecute returns generated text. It never touches the
// canonical state.
func (s *Server) handleAssistantExecute(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil || !s.assistant.IsConfigured() {
		s.writeError(w, r, fmt.Errorf("assistant: %w", errUnavailable))
		return
	}

	var req entities.AssistantRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.assistant.Execute(r.Context(), req)
	if err != nil {
		if !entities.IsValidationError(err) {
			s.logger.Error().Err(err).Str("command", req.Command).Msg("assistant failed")
			s.writeJSON(w, http.StatusBadGateway, errorBody{Error: "assistant_error", Message: err.Error()})
			return
		}
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "result": result})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if _, off := s.metrics.(nopMetrics); off {
		s.writeError(w, r, fmt.Errorf("metrics: %w", errUnavailable))
		return
	}
	s.writeJSON(w, http.StatusOK, s.metrics.Report())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Clients:   s.registry.Count(),
		UptimeSec: time.Since(s.startedAt).Seconds(),
	})
}

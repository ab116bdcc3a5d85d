package intake

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/carepath-ai/platform/pkg/account"
	"github.com/carepath-ai/platform/pkg/assist"
	"github.com/carepath-ai/platform/pkg/common/logger"
	"github.com/carepath-ai/platform/pkg/common/models"
	"github.com/carepath-ai/platform/pkg/conversation"
	"github.com/carepath-ai/platform/pkg/intake/middleware"
	"github.com/carepath-ai/platform/pkg/redact"
	"github.com/carepath-ai/platform/pkg/simulation"
	"github.com/carepath-ai/platform/pkg/speech"
	"github.com/carepath-ai/platform/pkg/visualization"
)

const maxAudioBytes = 10 << 20

const stateCookieName = "carepath_oauth_state"

// Publisher pushes analytics events onto the event bus.
type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Handler exposes the guided-intake API: session records, the symptom
// conversation, diagnosis, the visit simulation, and speech endpoints.
type Handler struct {
	registry      *Registry
	diagnosis     assist.DiagnosisClient
	transcriber   speech.Transcriber
	synthesizer   speech.Synthesizer
	publisher     Publisher
	redactor      *redact.Redactor
	authenticator *account.Authenticator
	language      string
	voiceType     string
}

// HandlerOptions carries the optional collaborators; nil fields disable
// the matching endpoints gracefully.
type HandlerOptions struct {
	Diagnosis     assist.DiagnosisClient
	Transcriber   speech.Transcriber
	Synthesizer   speech.Synthesizer
	Publisher     Publisher
	Redactor      *redact.Redactor
	Authenticator *account.Authenticator
	Language      string
	VoiceType     string
}

func NewHandler(registry *Registry, opts HandlerOptions) *Handler {
	return &Handler{
		registry:      registry,
		diagnosis:     opts.Diagnosis,
		transcriber:   opts.Transcriber,
		synthesizer:   opts.Synthesizer,
		publisher:     opts.Publisher,
		redactor:      opts.Redactor,
		authenticator: opts.Authenticator,
		language:      opts.Language,
		voiceType:     opts.VoiceType,
	}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/session", h.handleReadSession).Methods(http.MethodGet)
	r.HandleFunc("/session", h.handleClearSession).Methods(http.MethodDelete)
	r.HandleFunc("/session/symptoms", h.handleUpdateSymptoms).Methods(http.MethodPut)
	r.HandleFunc("/session/visualization", h.handleUpdateVisualization).Methods(http.MethodPut)

	r.HandleFunc("/conversation/start", h.handleStartConversation).Methods(http.MethodPost)
	r.HandleFunc("/conversation/message", h.handleSendMessage).Methods(http.MethodPost)
	r.HandleFunc("/conversation/audio", h.handleSendAudio).Methods(http.MethodPost)

	r.HandleFunc("/diagnosis", h.handleRequestDiagnosis).Methods(http.MethodPost)

	r.HandleFunc("/simulation/start", h.handleStartSimulation).Methods(http.MethodPost)
	r.HandleFunc("/simulation", h.handleSimulationView).Methods(http.MethodGet)
	r.HandleFunc("/simulation/goto", h.handleGoToStep).Methods(http.MethodPost)
	r.HandleFunc("/simulation/dialog/next", h.handleNextDialog).Methods(http.MethodPost)
	r.HandleFunc("/simulation/dialog/prev", h.handlePrevDialog).Methods(http.MethodPost)
	r.HandleFunc("/simulation/advance", h.handleAdvance).Methods(http.MethodPost)

	r.HandleFunc("/speech/synthesize", h.handleSynthesize).Methods(http.MethodPost)

	r.HandleFunc("/auth/login", h.handleLogin).Methods(http.MethodGet)
	r.HandleFunc("/auth/callback", h.handleCallback).Methods(http.MethodGet)
	r.HandleFunc("/auth/logout", h.handleLogout).Methods(http.MethodPost)
}

func (h *Handler) entry(w http.ResponseWriter, r *http.Request) (*Entry, bool) {
	sessionID := middleware.SessionID(r.Context())
	if sessionID == "" {
		http.Error(w, "session required", http.StatusBadRequest)
		return nil, false
	}
	return h.registry.Acquire(r.Context(), sessionID), true
}

func (h *Handler) handleReadSession(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, entry.Session.Read())
}

func (h *Handler) handleClearSession(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}
	entry.Session.ClearAll(r.Context())
	h.registry.Drop(entry.Session.SessionID())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdateSymptoms(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}
	var record models.SymptomRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	entry.Session.UpdateSymptoms(r.Context(), record)
	entry.Session.UpdateVisualization(r.Context(), visualization.Derive(record.PainAreas, record.EmotionalState))
	writeJSON(w, http.StatusOK, entry.Session.Read())
}

func (h *Handler) handleUpdateVisualization(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}
	var record models.VisualizationRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	entry.Session.UpdateVisualization(r.Context(), record)
	writeJSON(w, http.StatusOK, entry.Session.Read())
}

func (h *Handler) handleStartConversation(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}
	entry.Conversation.Start(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": entry.Conversation.ConversationID(),
		"messages":        entry.Conversation.Messages(),
		"state":           entry.Conversation.State(),
	})
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}
	h.deliverTurn(w, r, entry, req.Content, "")
}

func (h *Handler) handleSendAudio(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}
	if h.transcriber == nil {
		http.Error(w, "speech input not configured", http.StatusNotImplemented)
		return
	}

	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		http.Error(w, "invalid multipart payload", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("audio_file")
	if err != nil {
		http.Error(w, "audio_file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxAudioBytes))
	if err != nil {
		http.Error(w, "failed to read audio", http.StatusBadRequest)
		return
	}
	language := r.FormValue("language")
	if language == "" {
		language = h.language
	}

	transcript, err := h.transcriber.Transcribe(r.Context(), audio, language)
	if err != nil {
		logger.Log.WithError(err).Error("failed to transcribe audio")
		http.Error(w, "transcription failed", http.StatusBadGateway)
		return
	}
	if strings.TrimSpace(transcript) == "" {
		http.Error(w, "no speech recognized", http.StatusUnprocessableEntity)
		return
	}
	h.deliverTurn(w, r, entry, transcript, transcript)
}

func (h *Handler) deliverTurn(w http.ResponseWriter, r *http.Request, entry *Entry, content, transcript string) {
	result, err := entry.Conversation.Send(r.Context(), content)
	switch {
	case errors.Is(err, conversation.ErrNotReady):
		http.Error(w, "conversation not started", http.StatusConflict)
		return
	case errors.Is(err, conversation.ErrTurnInFlight):
		http.Error(w, "a message is already being processed", http.StatusConflict)
		return
	case err != nil:
		logger.Log.WithError(err).Error("conversation turn failed")
		http.Error(w, "message delivery failed", http.StatusBadGateway)
		return
	}

	payload := map[string]interface{}{
		"messages": result.Messages,
		"session":  entry.Session.Read(),
	}
	if result.AudioData != "" {
		payload["audio_data"] = result.AudioData
	}
	if transcript != "" {
		payload["transcript"] = transcript
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) handleRequestDiagnosis(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}
	if h.diagnosis == nil {
		http.Error(w, "diagnosis not configured", http.StatusNotImplemented)
		return
	}

	symptoms := entry.Session.Read().Symptoms
	if len(symptoms.PainAreas) == 0 && len(symptoms.MainSymptoms) == 0 {
		http.Error(w, "no symptoms recorded yet", http.StatusBadRequest)
		return
	}

	record, err := h.diagnosis.RequestDiagnosis(r.Context(), symptoms)
	if err != nil {
		logger.Log.WithError(err).Error("diagnosis request failed")
		http.Error(w, "diagnosis request failed", http.StatusBadGateway)
		return
	}
	entry.Session.UpdateDiagnosis(r.Context(), &record)

	h.publish(r.Context(), "diagnosis_requested", map[string]interface{}{
		"session_id":           entry.Session.SessionID(),
		"recommendation_level": record.RecommendationLevel,
		"urgent":               record.Urgent,
		"pain_area_count":      len(symptoms.PainAreas),
		"completeness_score":   symptoms.CompletenessScore,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{"diagnosis": record})
}

func (h *Handler) handleStartSimulation(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}
	if err := entry.Simulation.LoadStructure(r.Context()); err != nil {
		http.Error(w, "simulation unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, entry.Simulation.Snapshot())
}

func (h *Handler) handleSimulationView(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}
	if err := entry.Simulation.Fatal(); err != nil {
		http.Error(w, "simulation unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, entry.Simulation.Snapshot())
}

func (h *Handler) handleGoToStep(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}
	var req struct {
		Step int `json:"step"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := entry.Simulation.GoToStep(r.Context(), req.Step); err != nil {
		h.simulationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry.Simulation.Snapshot())
}

func (h *Handler) handleNextDialog(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}
	entry.Simulation.NextDialog()
	writeJSON(w, http.StatusOK, entry.Simulation.Snapshot())
}

func (h *Handler) handlePrevDialog(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}
	entry.Simulation.PrevDialog()
	writeJSON(w, http.StatusOK, entry.Simulation.Snapshot())
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}
	wasFinished := entry.Simulation.Snapshot().Finished
	finished, err := entry.Simulation.Advance(r.Context())
	if err != nil {
		h.simulationError(w, err)
		return
	}
	if finished && !wasFinished {
		h.publish(r.Context(), "simulation_completed", map[string]interface{}{
			"session_id": entry.Session.SessionID(),
			"steps":      len(entry.Simulation.Snapshot().Steps),
		})
	}
	view := entry.Simulation.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"finished": finished,
		"view":     view,
	})
}

func (h *Handler) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.PublishEvent(ctx, eventType, "intake-service", h.redactor.Scrub(data)); err != nil {
		logger.Log.WithError(err).WithField("event_type", eventType).Warn("failed to publish event")
	}
}

func (h *Handler) simulationError(w http.ResponseWriter, err error) {
	if errors.Is(err, simulation.ErrStructureUnavailable) {
		http.Error(w, "simulation unavailable", http.StatusBadGateway)
		return
	}
	logger.Log.WithError(err).Error("simulation step load failed")
	http.Error(w, "step content unavailable", http.StatusBadGateway)
}

func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	if h.synthesizer == nil {
		http.Error(w, "speech output not configured", http.StatusNotImplemented)
		return
	}
	var req struct {
		Text      string `json:"text"`
		Language  string `json:"language"`
		VoiceType string `json:"voice_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	language := req.Language
	if language == "" {
		language = h.language
	}
	voiceType := req.VoiceType
	if voiceType == "" {
		voiceType = h.voiceType
	}

	audio, err := h.synthesizer.Synthesize(r.Context(), req.Text, language, voiceType)
	if err != nil {
		logger.Log.WithError(err).Error("speech synthesis failed")
		http.Error(w, "synthesis failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"audio_data": audio})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if h.authenticator == nil {
		http.Error(w, "login not configured", http.StatusNotImplemented)
		return
	}
	state := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})
	http.Redirect(w, r, h.authenticator.AuthURL(state), http.StatusFound)
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	if h.authenticator == nil {
		http.Error(w, "login not configured", http.StatusNotImplemented)
		return
	}
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}

	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		http.Error(w, "state mismatch", http.StatusBadRequest)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "code is required", http.StatusBadRequest)
		return
	}

	identity, err := h.authenticator.Exchange(r.Context(), code)
	if err != nil {
		logger.Log.WithError(err).Warn("login exchange failed")
		http.Error(w, "login failed", http.StatusUnauthorized)
		return
	}
	entry.Session.SetIdentity(identity)
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": identity})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}
	entry.Session.SetIdentity(models.SessionIdentity{})
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

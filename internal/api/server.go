// Package api exposes the playback coordinator to a rendering layer over
// HTTP, with a websocket stream of state changes and notices.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"yatravoice/internal/domain/chat"
	"yatravoice/internal/domain/speech"
	"yatravoice/internal/metrics"
	"yatravoice/internal/speech/playback"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Speaker is the part of the playback coordinator the API drives.
type Speaker interface {
	Toggle(text string, index int)
	Stop()
	Status() playback.Status
	SetLanguage(code string) error
	SetAutoSpeak(on bool)
}

// VoiceLister reports the device voice catalogue.
type VoiceLister interface {
	Snapshot() []speech.Voice
}

type Server struct {
	speaker  Speaker
	conv     *chat.Conversation
	voices   VoiceLister
	hub      *Hub
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
}

func New(speaker Speaker, conv *chat.Conversation, voices VoiceLister, hub *Hub, m *metrics.Metrics, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		speaker: speaker,
		conv:    conv,
		voices:  voices,
		hub:     hub,
		metrics: m,
		log:     log.WithField("component", "api"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/voices", s.handleVoices)
	r.Get("/languages", s.handleLanguages)
	r.Get("/messages", s.handleListMessages)
	r.Post("/messages", s.handleAppendMessage)
	r.Post("/toggle", s.handleToggle)
	r.Post("/stop", s.handleStop)
	r.Post("/settings", s.handleSettings)
	r.Get("/events", s.handleEvents)
	r.Handle("/metrics", s.metrics.Handler())

	return r
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("Control API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"supported": s.speaker.Status().Supported,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.speaker.Status())
}

func (s *Server) handleVoices(w http.ResponseWriter, _ *http.Request) {
	voices := []speech.Voice{}
	if s.voices != nil {
		voices = s.voices.Snapshot()
	}
	respondJSON(w, http.StatusOK, map[string]any{"voices": voices})
}

func (s *Server) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"languages": speech.Languages()})
}

func (s *Server) handleListMessages(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"messages": s.conv.Messages()})
}

type appendRequest struct {
	Role    chat.Role `json:"role"`
	Content string    `json:"content"`
}

func (s *Server) handleAppendMessage(w http.ResponseWriter, r *http.Request) {
	var req appendRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Role == "" {
		req.Role = chat.RoleAssistant
	}
	if req.Role != chat.RoleAssistant && req.Role != chat.RoleUser {
		respondError(w, http.StatusBadRequest, "invalid_role", "role must be user or assistant")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		respondError(w, http.StatusBadRequest, "empty_content", "content is required")
		return
	}

	index := s.conv.Append(req.Role, req.Content)
	respondJSON(w, http.StatusCreated, map[string]any{"index": index})
}

type toggleRequest struct {
	Index *int   `json:"index"`
	Text  string `json:"text"`
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Index == nil {
		respondError(w, http.StatusBadRequest, "missing_index", "index is required")
		return
	}
	if *req.Index < 0 {
		respondError(w, http.StatusBadRequest, "invalid_index", "index must not be negative")
		return
	}

	text := req.Text
	if text == "" {
		msg, ok := s.conv.Get(*req.Index)
		if !ok {
			respondError(w, http.StatusNotFound, "message_not_found", "no message at index")
			return
		}
		text = msg.Content
	}

	s.speaker.Toggle(text, *req.Index)
	respondJSON(w, http.StatusOK, s.speaker.Status())
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	s.speaker.Stop()
	respondJSON(w, http.StatusOK, s.speaker.Status())
}

type settingsRequest struct {
	Language  *string `json:"language"`
	AutoSpeak *bool   `json:"auto_speak"`
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Language != nil {
		if err := s.speaker.SetLanguage(*req.Language); err != nil {
			respondError(w, http.StatusBadRequest, "unsupported_language", err.Error())
			return
		}
	}
	if req.AutoSpeak != nil {
		s.speaker.SetAutoSpeak(*req.AutoSpeak)
	}
	respondJSON(w, http.StatusOK, s.speaker.Status())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	s.hub.serve(conn, func() Event {
		st := s.speaker.Status()
		return Event{
			Type:  EventState,
			State: &playback.StateChange{SpeakingIndex: st.SpeakingIndex, Mechanism: st.Mechanism},
		}
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

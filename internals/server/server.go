// Package server exposes the pipeline over HTTP: chat CRUD, a blocking turn
// endpoint, and an SSE stream of intermediate pipeline events. Turns for the
// same chat are not serialised here; concurrent turns interleave at the
// persistence layer.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jadenj13/opsagent/internals/agent"
	"github.com/jadenj13/opsagent/internals/chat"
	"github.com/jadenj13/opsagent/internals/store"
)

type Server struct {
	pipeline *agent.Pipeline
	store    *store.Store
	log      *slog.Logger
}

func New(pipeline *agent.Pipeline, store *store.Store, log *slog.Logger) *Server {
	return &Server{pipeline: pipeline, store: store, log: log}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat/create", s.handleCreateChat)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /agent/stream", s.handleStream)
	mux.HandleFunc("GET /chats", s.handleListChats)
	mux.HandleFunc("GET /chat/{id}", s.handleGetChat)
	mux.HandleFunc("DELETE /chat/{id}", s.handleDeleteChat)
	return mux
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.CreateChat(r.Context())
	if err != nil {
		s.log.Error("create chat failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"chat_id": c.ID})
}

type chatRequest struct {
	Message string `json:"message"`
	ChatID  string `json:"chat_id"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	if req.ChatID == "" {
		http.Error(w, "chat_id is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	history, ok := s.loadHistory(w, r, req.ChatID)
	if !ok {
		return
	}

	userMsg := chat.User(req.Message)
	if err := s.store.AppendMessage(ctx, req.ChatID, userMsg); err != nil {
		s.log.Error("save user message failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	before := len(history) + 1
	final := s.pipeline.Run(ctx, chat.State{Messages: append(history, userMsg)})

	reply := ""
	for _, m := range final.Messages[before:] {
		if err := s.store.AppendMessage(ctx, req.ChatID, m); err != nil {
			s.log.Error("save reply failed", "err", err)
		}
		if m.Content != "" {
			reply = m.Content
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"chat_id": req.ChatID, "reply": reply})
}

// handleStream runs one turn and streams pipeline events to the client as
// server-sent events. Each event is a named type plus a JSON data payload
// terminated by a blank line; a terminal end event closes the stream.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	message := r.URL.Query().Get("message")
	chatID := r.URL.Query().Get("chat_id")

	ctx := r.Context()
	c, err := s.store.GetChat(ctx, chatID)
	if err != nil || c == nil {
		writeEvent(w, flusher, string(agent.EventError), map[string]string{"error": "chat not found"})
		return
	}

	history, err := s.store.Messages(ctx, chatID)
	if err != nil {
		writeEvent(w, flusher, string(agent.EventError), map[string]string{"error": "internal error"})
		return
	}

	userMsg := chat.User(message)
	if err := s.store.AppendMessage(ctx, chatID, userMsg); err != nil {
		s.log.Error("save user message failed", "err", err)
	}

	events := s.pipeline.Events(ctx, chat.State{Messages: append(history, userMsg)})
	for ev := range events {
		switch ev.Kind {
		case agent.EventMessage:
			if m, ok := ev.Payload.(chat.Message); ok {
				if err := s.store.AppendMessage(ctx, chatID, m); err != nil {
					s.log.Error("save reply failed", "err", err)
				}
			}
		case agent.EventEnd:
			writeEvent(w, flusher, string(ev.Kind), "done")
			return
		}
		writeEvent(w, flusher, string(ev.Kind), ev.Payload)
	}
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.store.ListChats(r.Context())
	if err != nil {
		s.log.Error("list chats failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if chats == nil {
		chats = []store.Chat{}
	}
	writeJSON(w, http.StatusOK, chats)
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	c, ok := s.getChat(w, r, id)
	if !ok {
		return
	}
	msgs, err := s.store.Messages(r.Context(), id)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       c.ID,
		"title":    c.Title,
		"messages": msgs,
	})
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteChat(r.Context(), r.PathValue("id")); err != nil {
		s.log.Error("delete chat failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) getChat(w http.ResponseWriter, r *http.Request, id string) (*store.Chat, bool) {
	c, err := s.store.GetChat(r.Context(), id)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	if c == nil {
		http.Error(w, "chat not found", http.StatusNotFound)
		return nil, false
	}
	return c, true
}

func (s *Server) loadHistory(w http.ResponseWriter, r *http.Request, chatID string) ([]chat.Message, bool) {
	if _, ok := s.getChat(w, r, chatID); !ok {
		return nil, false
	}
	history, err := s.store.Messages(r.Context(), chatID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	return history, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, kind string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(`{}`)
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", kind, data)
	flusher.Flush()
}

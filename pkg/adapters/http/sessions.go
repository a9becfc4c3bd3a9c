package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aretw0/canopy/pkg/domain"
)

// ListSessions handles GET /api/v1/sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.studio.ListSessions(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, SessionList{Sessions: ids})
}

// CreateSession handles POST /api/v1/sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.studio.CreateSession(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, SessionCreated{SessionId: id})
}

// DeleteSession handles DELETE /api/v1/sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.studio.DeleteSession(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHistory handles GET /api/v1/sessions/{id}/history.
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request, id string) {
	ok, err := s.studio.SessionExists(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !ok {
		s.fail(w, domain.ErrSessionNotFound)
		return
	}

	msgs, err := s.studio.History(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	s.writeJSON(w, http.StatusOK, msgs)
}

// Chat handles POST /api/v1/sessions/{id}/chat. The session is created on first use.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request, id string) {
	var body ChatJSONRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		s.writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	out, err := s.studio.Chat(r.Context(), id, body.Query)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ChatResponse{Response: out})
}

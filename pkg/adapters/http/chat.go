package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/runner"
	"github.com/go-chi/chi/v5"
)

// ChatRequest is the body of a conversation turn. An empty body starts or re-renders.
// Action ("back" or "end") applies a control instead of Input.
type ChatRequest struct {
	Input  string            `json:"input,omitempty"`
	Action domain.ActionType `json:"action,omitempty"`
}

// Chat handles POST /api/bots/{botID}/chat.
//
// The first turn has no session id: a session is minted, started and returned in the
// SessionId header and cookie. Later turns must echo it.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	botID := chi.URLParam(r, "botID")

	if s.keys != nil {
		if _, err := s.keys.Authorize(r.Header.Get("Authorization"), botID); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	var body ChatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	res, err := s.Runner.Answer(r.Context(), botID, sessionIDFrom(r), runner.Reply{Input: body.Input, Action: body.Action})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if res.Diff != nil {
		if bytes, err := json.Marshal(res.Diff); err == nil {
			s.Streams.Broadcast(res.SessionID, string(bytes))
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveTurn(botID, res.Turn.Type)
	}

	w.Header().Set(domain.SessionHeader, res.SessionID)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    res.SessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, res.Turn)
}

func sessionIDFrom(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(domain.SessionHeader)); id != "" {
		return id
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aretw0/tendril/internal/presentation/graph"
	"github.com/aretw0/tendril/pkg/codec"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/validator"
	"github.com/go-chi/chi/v5"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 4 << 20

// GetConfig handles GET /api/bots/{botID}/config.
func (s *Server) GetConfig(w http.ResponseWriter, r *http.Request) {
	bot, err := s.Repo.Get(r.Context(), chi.URLParam(r, "botID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": codec.Serialize(bot)})
}

// SetConfig handles POST /api/bots/{botID}/config.
// The whole bot is replaced; structural errors reject the save, warnings are returned.
func (s *Server) SetConfig(w http.ResponseWriter, r *http.Request) {
	botID := chi.URLParam(r, "botID")
	bot, err := s.decodeBot(r, botID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	report := validator.Check(bot)
	if !report.OK() {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":    "bot has structural errors",
			"errors":   report.Errors,
			"warnings": nonNilIssues(report.Warnings),
		})
		return
	}

	if err := s.Repo.Save(r.Context(), bot); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("Bot saved", "bot_id", botID, "nodes", len(bot.Nodes), "warnings", len(report.Warnings))

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Bot configuration saved",
		"warnings": nonNilIssues(report.Warnings),
	})
}

// Validate handles POST /api/bots/{botID}/validate.
// An empty body validates the stored bot.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	botID := chi.URLParam(r, "botID")
	bot, err := s.decodeBot(r, botID)
	if errors.Is(err, errEmptyBody) {
		bot, err = s.Repo.Get(r.Context(), botID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	} else if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	report := validator.Check(bot)
	writeJSON(w, http.StatusOK, validator.Report{
		Errors:   nonNilIssues(report.Errors),
		Warnings: nonNilIssues(report.Warnings),
	})
}

// GetGraph handles GET /api/bots/{botID}/graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	bot, err := s.Repo.Get(r.Context(), chi.URLParam(r, "botID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	overlay := &graph.GraphOverlay{FlaggedNodes: validator.Check(bot).NodeIDs()}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(graph.GenerateMermaid(bot, overlay)))
}

var errEmptyBody = errors.New("empty request body")

// decodeBot reads a bot payload, unwrapping the known envelopes.
// The id in the URL wins over the id in the body.
func (s *Server) decodeBot(r *http.Request, botID string) (*domain.Bot, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(raw) == 0 {
		return nil, errEmptyBody
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}

	bot, err := codec.Normalize(codec.Unwrap(body))
	if err != nil {
		return nil, err
	}
	bot.ID = botID
	return bot, nil
}

func nonNilIssues(issues []validator.Issue) []validator.Issue {
	if issues == nil {
		return []validator.Issue{}
	}
	return issues
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/poiesic/newsdesk/chat"
	"github.com/poiesic/newsdesk/core"
)

const maxBodyBytes = 1 << 20

type messageResponse struct {
	Message string `json:"message"`
}

type ingestRequest struct {
	Source string `json:"source"`
}

type articleLink struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

type ingestResponse struct {
	Message  string        `json:"message"`
	Articles []articleLink `json:"articles"`
}

type chatRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"sessionId"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "hey"})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
		return
	}

	result, err := s.ingester.IngestSource(r.Context(), req.Source)
	if err != nil {
		if errors.Is(err, core.ErrInvalidSource) {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Invalid source"})
			return
		}
		s.logger.Error("ingestion failed", "source", req.Source, "err", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "Ingestion failed"})
		return
	}

	links := make([]articleLink, 0, len(result.Articles))
	for _, a := range result.Articles {
		links = append(links, articleLink{Title: a.Title, Link: a.URL})
	}
	writeJSON(w, http.StatusOK, ingestResponse{
		Message:  fmt.Sprintf("Ingesting latest news from the below %d articles, source: %s", len(links), result.Source.Name),
		Articles: links,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Query is required"})
		return
	}

	ctx := r.Context()
	turn, err := s.chat.Chat(ctx, req.Query, req.SessionID)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyQuery) {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Query is required"})
			return
		}
		s.logger.Error("chat failed", "session", req.SessionID, "err", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: err.Error()})
		return
	}
	defer turn.Close()

	if err := s.emitter.Emit(ctx, w, turn); err != nil && ctx.Err() == nil {
		s.logger.Warn("chat stream ended with error", "session", turn.SessionID(), "err", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

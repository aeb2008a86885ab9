package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/interview-engine/internal/interview"
	"github.com/terra-clan/interview-engine/internal/models"
	"github.com/terra-clan/interview-engine/internal/report"
)

// Admin handlers (authenticated)

func (s *Server) handleCreateInterview(w http.ResponseWriter, r *http.Request) {
	var req models.CreateInterviewRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}

	if req.TargetQuestions < 0 {
		respondError(w, http.StatusBadRequest, "validation_error", "target_questions must not be negative")
		return
	}

	createdBy := ""
	if client := ClientFromContext(r.Context()); client != nil {
		createdBy = client.Name
	}

	session, err := s.manager.Create(r.Context(), req, createdBy)
	if err != nil {
		slog.Error("failed to create interview", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create interview")
		return
	}

	respondJSON(w, http.StatusCreated, models.CreateInterviewResponse{
		ID:              session.ID,
		Token:           session.Token,
		Phase:           session.Phase,
		TargetQuestions: session.TargetQuestions,
		JoinURL:         fmt.Sprintf("/join/%s", session.Token),
		CreatedAt:       session.StartTime,
	})
}

func (s *Server) handleGetInterview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "interview id is required")
		return
	}

	session, err := s.manager.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, interview.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "interview not found")
			return
		}
		slog.Error("failed to get interview", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get interview")
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteInterview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "interview id is required")
		return
	}

	if err := s.manager.Delete(r.Context(), id); err != nil {
		if errors.Is(err, interview.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "interview not found")
			return
		}
		slog.Error("failed to delete interview", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to delete interview")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "interview deleted",
	})
}

func (s *Server) handleEndInterview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "interview id is required")
		return
	}

	msg, err := s.manager.EndEarly(r.Context(), id)
	if err != nil {
		if errors.Is(err, interview.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "interview not found")
			return
		}
		slog.Error("failed to end interview", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to end interview")
		return
	}

	respondJSON(w, http.StatusOK, msg)
}

func (s *Server) handleListInterviews(w http.ResponseWriter, r *http.Request) {
	filters := models.ListFilters{
		Phase:     models.Phase(r.URL.Query().Get("phase")),
		CreatedBy: r.URL.Query().Get("created_by"),
		Limit:     50, // default
		Offset:    0,
	}

	if filters.Phase != "" && !filters.Phase.Valid() {
		respondError(w, http.StatusBadRequest, "validation_error", "unknown phase filter")
		return
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filters.Limit = limit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filters.Offset = offset
		}
	}

	sessions, err := s.manager.List(r.Context(), filters)
	if err != nil {
		slog.Error("failed to list interviews", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list interviews")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"interviews": sessions,
		"total":      len(sessions),
	})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "interview id is required")
		return
	}

	session, err := s.manager.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, interview.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "interview not found")
			return
		}
		slog.Error("failed to get interview", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get interview")
		return
	}

	s.writeReport(w, r, session)
}

// Candidate handlers (token-scoped, no API key)

// sessionFromToken loads the session behind a join token or writes the
// error response itself, returning nil.
func (s *Server) sessionFromToken(w http.ResponseWriter, r *http.Request) *models.Session {
	token := chi.URLParam(r, "token")
	if token == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "join token is required")
		return nil
	}

	session, err := s.manager.GetByToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, interview.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "no interview for this token")
			return nil
		}
		slog.Error("failed to resolve join token", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to resolve token")
		return nil
	}
	return session
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	session := s.sessionFromToken(w, r)
	if session == nil {
		return
	}

	respondJSON(w, http.StatusOK, models.JoinResponse{
		Phase:    session.Phase,
		Message:  session.LastMessage,
		Progress: s.manager.Progress(session),
		Complete: session.IsComplete(),
		Metadata: session.Metadata,
	})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	session := s.sessionFromToken(w, r)
	if session == nil {
		return
	}

	var req models.MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	resp, err := s.manager.ProcessResponse(r.Context(), session.ID, req.Text)
	if err != nil {
		slog.Error("failed to process message", "error", err, "id", session.ID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to process message")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	session := s.sessionFromToken(w, r)
	if session == nil {
		return
	}

	respondJSON(w, http.StatusOK, s.manager.Progress(session))
}

func (s *Server) handleCandidateReport(w http.ResponseWriter, r *http.Request) {
	session := s.sessionFromToken(w, r)
	if session == nil {
		return
	}

	s.writeReport(w, r, session)
}

// writeReport serves a session's report as JSON or rendered markdown
// (?format=markdown).
func (s *Server) writeReport(w http.ResponseWriter, r *http.Request, session *models.Session) {
	if session.Report == nil {
		respondError(w, http.StatusConflict, "report_not_ready", "the interview has not finished yet")
		return
	}

	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(report.FormatMarkdown(session.Report))); err != nil {
			slog.Error("failed to write markdown report", "error", err)
		}
		return
	}

	respondJSON(w, http.StatusOK, session.Report)
}

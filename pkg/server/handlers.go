package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fingate-ai/fingate/pkg/domain"
)

// queryRequest is the wire form of one advisory query. Callers identify
// themselves by id only; user attributes are resolved server-side.
type queryRequest struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
}

// queryResponse is the wire form of a pipeline outcome. The response text is
// always post-enforcement: a rejected run carries the refusal text, never the
// model draft.
type queryResponse struct {
	RequestID     string          `json:"request_id"`
	State         string          `json:"state"`
	Response      responsePayload `json:"response"`
	RejectedBy    string          `json:"rejected_by,omitempty"`
	RefusalReason string          `json:"refusal_reason,omitempty"`
}

type responsePayload struct {
	Text           string `json:"text"`
	ContainsAdvice bool   `json:"contains_advice"`
	Risk           string `json:"risk_level,omitempty"`
	Disclaimer     string `json:"disclaimer,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"}, s.logger)
		return
	}

	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id is required"}, s.logger)
		return
	}
	user, ok := s.directory.Resolve(req.UserID)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown user"}, s.logger)
		return
	}

	result, err := s.orchestrator.Run(r.Context(), user, req.Query)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()}, s.logger)
			return
		}
		s.logger.Error("pipeline run failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"}, s.logger)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		RequestID: result.RequestID,
		State:     string(result.State),
		Response: responsePayload{
			Text:           result.Response.Text,
			ContainsAdvice: result.Response.ContainsAdvice,
			Risk:           string(result.Response.Risk),
			Disclaimer:     result.Response.Disclaimer,
		},
		RejectedBy:    result.RejectedBy,
		RefusalReason: result.RefusalReason,
	}, s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, payload any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

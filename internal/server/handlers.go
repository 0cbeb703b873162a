package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/littlelifetrip/ai-recommender/internal/types"
)

const maxBodyBytes = 1 << 20

// request is implemented by every API request body.
type request interface {
	Normalize()
	Validate() error
}

// decodeRequest reads, normalizes and validates a JSON body.
func decodeRequest(w http.ResponseWriter, r *http.Request, req request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return decodeError(err)
	}
	req.Normalize()
	return req.Validate()
}

func decodeError(err error) *ErrValidation {
	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
		tooLarge  *http.MaxBytesError
	)
	switch {
	case errors.Is(err, io.EOF):
		return &ErrValidation{Field: "body", Message: "request body is empty"}
	case errors.As(err, &typeErr):
		return &ErrValidation{Field: typeErr.Field, Message: "must be of type " + typeErr.Type.String()}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return &ErrValidation{Field: "body", Message: "malformed JSON"}
	case errors.As(err, &tooLarge):
		return &ErrValidation{Field: "body", Message: "request body too large"}
	default:
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
}

// handleRecommend generates a new itinerary.
func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req types.RecommendationRequest
	if err := decodeRequest(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	plan, err := s.recommender.Recommend(r.Context(), &req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, plan)
}

// handleExplain explains a plan or answers a question about it.
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req types.ExplainRequest
	if err := decodeRequest(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	result, err := s.recommender.Explain(r.Context(), &req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleImprove revises an existing plan.
func (s *Server) handleImprove(w http.ResponseWriter, r *http.Request) {
	var req types.ImproveRequest
	if err := decodeRequest(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	result, err := s.recommender.Improve(r.Context(), &req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok", "service": ServiceName})
}

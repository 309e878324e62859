package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/leapstack-labs/apalint/internal/coach"
	"github.com/leapstack-labs/apalint/internal/extract"
	"github.com/leapstack-labs/apalint/pkg/core"
	"github.com/leapstack-labs/apalint/pkg/lint"
)

// LintRequest is the body of POST /lint.
type LintRequest struct {
	DocumentText string           `json:"document_text"`
	Format       string           `json:"format,omitempty"`
	Context      core.LintContext `json:"context"`
	Review       bool             `json:"review,omitempty"`
}

type healthResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Agents       []string  `json:"agents"`
	Rules        int       `json:"rules"`
	Augmentation bool      `json:"augmentation"`
}

type rulesResponse struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Rules   []lint.RuleInfo `json:"rules"`
}

type reloadResponse struct {
	Success bool     `json:"success"`
	Rules   int      `json:"rules"`
	Domains []string `json:"domains"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		Timestamp:    time.Now().UTC(),
		Agents:       s.engine.AgentIDs(),
		Rules:        s.engine.Rules().Len(),
		Augmentation: s.engine.Augmented(),
	})
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	agent := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("agent")))
	infos := []lint.RuleInfo{}
	for _, rule := range s.engine.Rules().All() {
		if agent != "" && rule.Domain != agent {
			continue
		}
		infos = append(infos, rule.Info())
	}
	writeJSON(w, http.StatusOK, rulesResponse{Success: true, Count: len(infos), Rules: infos})
}

func (s *Server) handleReload(w http.ResponseWriter, _ *http.Request) {
	if s.load == nil {
		writeError(w, http.StatusNotImplemented, "rule reloading is not configured")
		return
	}
	rs, err := s.Reload()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{Success: true, Rules: rs.Len(), Domains: rs.Domains()})
}

func (s *Server) handleLint(w http.ResponseWriter, r *http.Request) {
	var req LintRequest
	if !s.decode(w, r, &req) {
		return
	}
	format, ok := extract.ParseFormat(req.Format)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", req.Format))
		return
	}
	text, err := extract.Text([]byte(req.DocumentText), format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.engine.Lint(r.Context(), text, req.Context)
	if err != nil {
		s.fail(w, err)
		return
	}
	if req.Review {
		res.AttachReview()
	}

	body, err := withSuccess(res)
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleCoach(w http.ResponseWriter, r *http.Request) {
	var req coach.Request
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.coach.Handle(r.Context(), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// decode reads a JSON body, answering the client itself on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return false
	}
	writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
	return false
}

// fail maps err to a status code.
func (s *Server) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrInvalidRequest) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

// withSuccess marshals v and adds "success": true to the object.
func withSuccess(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["success"] = json.RawMessage("true")
	return json.Marshal(fields)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

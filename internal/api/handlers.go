package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goodtune/countdown/internal/countdown"
	"github.com/goodtune/countdown/internal/storage"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// StartRequest is the body of POST /api/countdown.
type StartRequest struct {
	Days int `json:"days"`
}

// IdentityRequest is the body of PUT /api/identity.
type IdentityRequest struct {
	Identity string `json:"identity"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		http.Error(w, `{"error":"Internal Server Error","message":"Failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// writeControllerError maps controller errors to HTTP statuses.
func (s *Server) writeControllerError(w http.ResponseWriter, err error) {
	var validationErr *countdown.ValidationError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, storage.ErrInvalidIdentity):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, countdown.ErrInvalidState),
		errors.Is(err, countdown.ErrNoIdentity),
		errors.Is(err, countdown.ErrIdentityAlreadySet):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, countdown.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error().Err(err).Msg("Unexpected controller error")
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"state":  s.countdown.Snapshot().State,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.countdown.Snapshot())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := countdown.ValidateDays(req.Days); err != nil {
		s.writeControllerError(w, err)
		return
	}

	snap, err := s.countdown.Start(r.Context(), req.Days)
	if err != nil {
		s.writeControllerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	snap, err := s.countdown.Reset(r.Context())
	if err != nil {
		s.writeControllerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleIdentity(w http.ResponseWriter, r *http.Request) {
	var req IdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	snap, err := s.countdown.SetIdentity(r.Context(), req.Identity)
	if err != nil {
		s.writeControllerError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, snap)
}

// handleEvents streams snapshots as server-sent events until the client
// goes away or the controller closes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.logger.Warn().Err(err).Msg("Failed to clear write deadline for event stream")
	}

	updates, cancel := s.countdown.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.logger.Error().Err(err).Msg("Event stream not supported by response writer")
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			payload, err := json.Marshal(snap)
			if err != nil {
				s.logger.Error().Err(err).Msg("Failed to encode snapshot")
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

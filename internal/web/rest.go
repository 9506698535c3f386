package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/conorfennell/lectern/internal/calendar"
	"github.com/conorfennell/lectern/internal/domain"
	domainerrors "github.com/conorfennell/lectern/internal/errors"
)

const maxBodyBytes = 4 << 10

// cardJSON is a card in REST responses. Only the first card of a response
// carries time_distance, the days until the group is due.
type cardJSON struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Subject      string `json:"subject"`
	Colour       string `json:"colour"`
	Points       int    `json:"points"`
	Date         string `json:"date"`
	TimeDistance *int   `json:"time_distance,omitempty"`
}

type deleteCardRequest struct {
	ID int64 `json:"id"`
}

func (s *Server) handleListDueCards(w http.ResponseWriter, r *http.Request) {
	owner := currentUser(r.Context()).ID
	due, ok, err := s.services.Cards.NextDue(r.Context(), owner)
	if err != nil {
		writeError(w, err, s.logger)
		return
	}

	out := []cardJSON{}
	if ok {
		for i, c := range due.Cards {
			item := cardJSON{
				ID:      c.ID,
				Title:   c.Title,
				Subject: c.SubjectName,
				Colour:  c.SubjectColour.Hex(),
				Points:  c.Points,
				Date:    c.Date.Format(domain.DateLayout),
			}
			if i == 0 {
				days := due.DaysUntil
				item.TimeDistance = &days
			}
			out = append(out, item)
		}
	}
	writeJSON(w, http.StatusOK, out, s.logger)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	var req deleteCardRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil || req.ID <= 0 {
		writeError(w, domainerrors.Validation("body must be {\"id\": <card id>}"), s.logger)
		return
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		writeError(w, domainerrors.Validation("body must contain a single JSON object"), s.logger)
		return
	}

	owner := currentUser(r.Context()).ID
	if err := s.services.Cards.Delete(r.Context(), owner, req.ID); err != nil {
		writeError(w, err, s.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	cards, err := s.services.Cards.List(r.Context(), user.ID)
	if err != nil {
		s.serverError(w, "list cards", err)
		return
	}

	var buf bytes.Buffer
	if err := calendar.Write(&buf, "lectern: "+user.Username, cards, s.options.Now()); err != nil {
		s.serverError(w, "write calendar", err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="lectern.ics"`)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"}, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"}, s.logger)
}

func writeJSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

// writeError answers with the error's status and, for domain errors, its
// code and message. Other errors are logged and hidden.
func writeError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *domainerrors.Error
	if !errors.As(err, &domainErr) || domainErr.Code == domainerrors.CodeInternal {
		logger.Error("request failed", "error", err)
		domainErr = &domainerrors.Error{Code: domainerrors.CodeInternal, Message: "internal server error"}
	}
	writeJSON(w, domainErr.HTTPStatus(), domainErr, logger)
}

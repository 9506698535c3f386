package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/conorfennell/lectern/internal/domain"
	domainerrors "github.com/conorfennell/lectern/internal/errors"
	"github.com/conorfennell/lectern/internal/service"
)

// message is a coloured notice at the top of a page.
type message struct {
	Text   string
	Colour string
}

func errorMessage(text string) *message   { return &message{Text: text, Colour: "red"} }
func successMessage(text string) *message { return &message{Text: text, Colour: "green"} }

// Redirect targets carry a status key rather than free text, so only these
// messages can be shown on the dashboard.
var statusMessages = map[string]string{
	"subject-created": "Successfully created subject!",
	"cards-created":   "Successfully created cards!",
	"subject-deleted": "Subject deleted.",
	"registered":      "Welcome to lectern!",
}

type page struct {
	Title    string
	Username string
	Message  *message
	Form     url.Values

	Subjects []domain.Subject
	Subject  *domain.Subject
	Due      *service.Due
	Palette  []domain.Colour
	Weekdays []domain.Weekday
	Next     string
}

func newPage(r *http.Request, title string) page {
	p := page{Title: title, Form: url.Values{}}
	if user := currentUser(r.Context()); user != nil {
		p.Username = user.Username
	}
	return p
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	owner := currentUser(r.Context()).ID
	p := newPage(r, "Dashboard")
	if text, ok := statusMessages[r.URL.Query().Get("status")]; ok {
		p.Message = successMessage(text)
	}

	subjects, err := s.services.Subjects.List(r.Context(), owner)
	if err != nil {
		s.serverError(w, "list subjects", err)
		return
	}
	p.Subjects = subjects

	due, ok, err := s.services.Cards.NextDue(r.Context(), owner)
	if err != nil {
		s.serverError(w, "find next due cards", err)
		return
	}
	if ok {
		p.Due = &due
	}

	s.render(w, http.StatusOK, "index", p)
}

func (s *Server) subjectFormPage(r *http.Request) page {
	p := newPage(r, "New subject")
	p.Palette = domain.Palette()
	p.Weekdays = []domain.Weekday{domain.Monday, domain.Tuesday, domain.Wednesday, domain.Thursday, domain.Friday}
	return p
}

func (s *Server) handleNewSubjectForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "new_subject", s.subjectFormPage(r))
}

func (s *Server) handleNewSubject(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	in := service.SubjectInput{
		Name:   r.PostForm.Get("name"),
		Colour: r.PostForm.Get("colour"),
	}
	for _, raw := range r.PostForm["days"] {
		d, err := strconv.Atoi(raw)
		if err != nil {
			d = -1 // rejected by validation
		}
		in.Days = append(in.Days, d)
	}

	owner := currentUser(r.Context()).ID
	if _, err := s.services.Subjects.Create(r.Context(), owner, in); err != nil {
		if domainErr, ok := userFacing(err); ok {
			p := s.subjectFormPage(r)
			p.Form = r.PostForm
			p.Message = errorMessage(domainErr.Message)
			s.render(w, domainErr.HTTPStatus(), "new_subject", p)
			return
		}
		s.serverError(w, "create subject", err)
		return
	}

	http.Redirect(w, r, "/?status=subject-created", http.StatusSeeOther)
}

func (s *Server) handleCreateCardsForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "create_cards", newPage(r, "Create cards"))
}

func (s *Server) handleCreateCards(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	owner := currentUser(r.Context()).ID
	_, err := s.services.Regenerator.Regenerate(r.Context(), owner, r.PostForm.Get("commence"), r.PostForm.Get("break"))
	if err != nil {
		if domainErr, ok := userFacing(err); ok {
			p := newPage(r, "Create cards")
			p.Form = r.PostForm
			p.Message = errorMessage(domainErr.Message)
			s.render(w, domainErr.HTTPStatus(), "create_cards", p)
			return
		}
		s.serverError(w, "regenerate cards", err)
		return
	}

	http.Redirect(w, r, "/?status=cards-created", http.StatusSeeOther)
}

func (s *Server) handleDeleteSubjectConfirm(w http.ResponseWriter, r *http.Request) {
	owner := currentUser(r.Context()).ID
	subject, err := s.services.Subjects.Get(r.Context(), owner, r.URL.Query().Get("name"))
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		s.serverError(w, "find subject", err)
		return
	}

	p := newPage(r, "Delete subject")
	p.Subject = subject
	s.render(w, http.StatusOK, "delete_subject", p)
}

func (s *Server) handleDeleteSubject(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("confirm") != "yes" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	owner := currentUser(r.Context()).ID
	err := s.services.Subjects.Delete(r.Context(), owner, r.URL.Query().Get("name"))
	switch {
	case err == nil:
		http.Redirect(w, r, "/?status=subject-deleted", http.StatusSeeOther)
	case errors.Is(err, domainerrors.ErrNotFound):
		http.Redirect(w, r, "/", http.StatusSeeOther)
	default:
		s.serverError(w, "delete subject", err)
	}
}

// userFacing returns the domain error a form should show, if err is one.
func userFacing(err error) (*domainerrors.Error, bool) {
	var domainErr *domainerrors.Error
	if !errors.As(err, &domainErr) || domainErr.Code == domainerrors.CodeInternal {
		return nil, false
	}
	return domainErr, true
}

func (s *Server) serverError(w http.ResponseWriter, action string, err error) {
	s.logger.Error("request failed", "action", action, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

package web

import (
	"errors"
	"net/http"

	domainerrors "github.com/conorfennell/lectern/internal/errors"
	"github.com/conorfennell/lectern/internal/service"
)

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "register", newPage(r, "Register"))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	user, err := s.services.Accounts.Register(r.Context(), service.RegisterInput{
		Username: r.PostForm.Get("username"),
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	})
	if err != nil {
		if domainErr, ok := userFacing(err); ok {
			p := newPage(r, "Register")
			p.Form = r.PostForm
			p.Form.Del("password")
			p.Message = errorMessage(domainErr.Message)
			s.render(w, domainErr.HTTPStatus(), "register", p)
			return
		}
		s.serverError(w, "register", err)
		return
	}

	if err := s.setSession(w, user.ID); err != nil {
		s.serverError(w, "issue session", err)
		return
	}
	http.Redirect(w, r, "/?status=registered", http.StatusSeeOther)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	p := newPage(r, "Log in")
	p.Next = safeNext(r.URL.Query().Get("next"))
	s.render(w, http.StatusOK, "login", p)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	next := safeNext(r.PostForm.Get("next"))

	user, err := s.services.Accounts.Authenticate(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		if errors.Is(err, domainerrors.ErrInvalidCredentials) {
			p := newPage(r, "Log in")
			p.Form = r.PostForm
			p.Form.Del("password")
			p.Next = next
			p.Message = errorMessage("Invalid username or password.")
			s.render(w, http.StatusUnauthorized, "login", p)
			return
		}
		s.serverError(w, "authenticate", err)
		return
	}

	if err := s.setSession(w, user.ID); err != nil {
		s.serverError(w, "issue session", err)
		return
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSession(w)
	http.Redirect(w, r, "/login/", http.StatusSeeOther)
}

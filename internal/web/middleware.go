package web

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/conorfennell/lectern/internal/domain"
	domainerrors "github.com/conorfennell/lectern/internal/errors"
)

// SessionCookie carries the PASETO session token.
const SessionCookie = "lectern_session"

type contextKey string

const contextKeyUser contextKey = "user"

// requireAuth resolves the session cookie to a user. Pages redirect to the
// login form; REST paths answer 401.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.sessionUser(r)
		if err != nil {
			if strings.HasPrefix(r.URL.Path, "/rest/") {
				writeError(w, domainerrors.ErrUnauthorized, s.logger)
				return
			}
			http.Redirect(w, r, "/login/?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) sessionUser(r *http.Request) (*domain.User, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, domainerrors.ErrUnauthorized
	}
	userID, err := s.services.Sessions.Verify(cookie.Value)
	if err != nil {
		return nil, domainerrors.ErrUnauthorized.WithCause(err)
	}
	user, err := s.services.Accounts.Get(r.Context(), userID)
	if err != nil {
		return nil, domainerrors.ErrUnauthorized.WithCause(err)
	}
	return user, nil
}

// currentUser returns the user attached by requireAuth.
func currentUser(ctx context.Context) *domain.User {
	user, _ := ctx.Value(contextKeyUser).(*domain.User)
	return user
}

func (s *Server) setSession(w http.ResponseWriter, userID string) error {
	token, expires, err := s.services.Sessions.Issue(userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   s.options.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Server) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.options.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

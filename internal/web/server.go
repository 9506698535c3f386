// Package web serves the lectern pages, the card REST endpoints and the
// calendar feed.
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/conorfennell/lectern/internal/auth"
	"github.com/conorfennell/lectern/internal/domain"
	"github.com/conorfennell/lectern/internal/service"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed templates/*.html
var templateFiles embed.FS

var pageNames = []string{
	"index",
	"new_subject",
	"create_cards",
	"delete_subject",
	"register",
	"login",
}

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the application services the handlers call.
type Services struct {
	Subjects    *service.Subjects
	Cards       *service.Cards
	Regenerator *service.Regenerator
	Accounts    *service.Accounts
	Sessions    *auth.Sessions
}

// Options tune cookie and clock behaviour.
type Options struct {
	CookieSecure bool
	Now          func() time.Time
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	router   *chi.Mux
	services Services
	store    Pinger
	pages    map[string]*template.Template
	options  Options
	logger   *slog.Logger
}

// NewServer creates a server with its routes and templates ready.
func NewServer(store Pinger, services Services, options Options, logger *slog.Logger) (*Server, error) {
	if options.Now == nil {
		options.Now = time.Now
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:   chi.NewRouter(),
		services: services,
		store:    store,
		pages:    pages,
		options:  options,
		logger:   logger,
	}

	s.setupMiddleware()
	if err := s.setupRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() error {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("failed to create sub-filesystem for static assets: %w", err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.router.Get("/health", s.handleHealth)

	s.router.Get("/register/", s.handleRegisterForm)
	s.router.Post("/register/", s.handleRegister)
	s.router.Get("/login/", s.handleLoginForm)
	s.router.Post("/login/", s.handleLogin)
	s.router.Get("/logout/", s.handleLogout)

	s.router.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/", s.handleIndex)
		r.Get("/new-subject/", s.handleNewSubjectForm)
		r.Post("/new-subject/", s.handleNewSubject)
		r.Get("/create-cards/", s.handleCreateCardsForm)
		r.Post("/create-cards/", s.handleCreateCards)
		r.Get("/delete-subject/", s.handleDeleteSubjectConfirm)
		r.Post("/delete-subject/", s.handleDeleteSubject)
		r.Get("/calendar.ics", s.handleCalendar)

		r.Route("/rest/cards", func(r chi.Router) {
			r.Get("/", s.handleListDueCards)
			r.Delete("/", s.handleDeleteCard)
		})
	})
	return nil
}

func parsePages() (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"int": func(d domain.Weekday) int { return int(d) },
		"hasValue": func(form url.Values, key string, value any) bool {
			return slices.Contains(form[key], fmt.Sprint(value))
		},
		"plural": func(n int, one, many string) string {
			if n == 1 || n == -1 {
				return one
			}
			return many
		},
		"abs": func(n int) int {
			if n < 0 {
				return -n
			}
			return n
		},
		"date": func(t time.Time) string { return t.Format("Mon 2 Jan 2006") },
		"itoa": strconv.Itoa,
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tpl, err := template.New(name).Funcs(funcs).ParseFS(templateFiles, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = tpl
	}
	return pages, nil
}

// render executes a page into a buffer first so that a template error
// never leaves a half-written response.
func (s *Server) render(w http.ResponseWriter, status int, name string, data page) {
	tpl, ok := s.pages[name]
	if !ok {
		s.logger.Error("unknown page template", "page", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, "base", data); err != nil {
		s.logger.Error("failed to render page", "page", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

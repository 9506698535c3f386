package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/lectern/internal/auth"
	"github.com/conorfennell/lectern/internal/logger"
	"github.com/conorfennell/lectern/internal/service"
	"github.com/conorfennell/lectern/internal/storage"
	"github.com/conorfennell/lectern/internal/validation"
)

type testEnv struct {
	server   *Server
	db       *storage.DB
	services Services
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "lectern.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sessions, err := auth.NewSessions("", time.Hour)
	require.NoError(t, err)

	log := logger.Discard()
	v := validation.New()
	now := func() time.Time { return time.Date(2024, time.February, 25, 9, 0, 0, 0, time.UTC) }
	services := Services{
		Subjects:    service.NewSubjects(db, v, log),
		Cards:       service.NewCards(db, now, log),
		Regenerator: service.NewRegenerator(db, log),
		Accounts:    service.NewAccounts(db, v, log),
		Sessions:    sessions,
	}

	server, err := NewServer(db, services, Options{Now: now}, log)
	require.NoError(t, err)
	return &testEnv{server: server, db: db, services: services}
}

// login registers username and returns its session cookie.
func (e *testEnv) login(t *testing.T, username string) *http.Cookie {
	t.Helper()
	user, err := e.services.Accounts.Register(context.Background(), service.RegisterInput{Username: username, Password: "pw-" + username})
	require.NoError(t, err)
	token, expires, err := e.services.Sessions.Issue(user.ID)
	require.NoError(t, err)
	return &http.Cookie{Name: SessionCookie, Value: token, Expires: expires}
}

func (e *testEnv) do(t *testing.T, req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postForm(t *testing.T, target string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(t, req, cookie)
}

func (e *testEnv) get(t *testing.T, target string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, httptest.NewRequest(http.MethodGet, target, nil), cookie)
}

func (e *testEnv) deleteCard(t *testing.T, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodDelete, "/rest/cards/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return e.do(t, req, cookie)
}

func (e *testEnv) seed(t *testing.T, cookie *http.Cookie) {
	t.Helper()
	rec := e.postForm(t, "/new-subject/", url.Values{"name": {"Algorithms"}, "colour": {"blue"}, "days": {"1", "3"}}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	rec = e.postForm(t, "/create-cards/", url.Values{"commence": {"2024-02-26"}, "break": {"2024-03-18"}}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
}

func TestRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/create-cards/", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login/?next=%2Fcreate-cards%2F", rec.Header().Get("Location"))

	rec = env.get(t, "/rest/cards/", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"UNAUTHORIZED"`)

	rec = env.get(t, "/", &http.Cookie{Name: SessionCookie, Value: "v4.local.garbage"})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestRegisterLoginLogout(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postForm(t, "/register/", url.Values{"username": {"alice"}, "password": {"hunter2"}}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?status=registered", rec.Header().Get("Location"))
	require.NotEmpty(t, rec.Result().Cookies())
	assert.Equal(t, SessionCookie, rec.Result().Cookies()[0].Name)

	rec = env.postForm(t, "/register/", url.Values{"username": {"alice"}, "password": {"other"}}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "is taken")

	rec = env.postForm(t, "/login/", url.Values{"username": {"alice"}, "password": {"wrong"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid username or password.")

	rec = env.postForm(t, "/login/", url.Values{"username": {"alice"}, "password": {"hunter2"}, "next": {"/create-cards/"}}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/create-cards/", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	rec = env.get(t, "/", cookies[0])
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<span class="user">alice</span>`)

	rec = env.get(t, "/logout/", cookies[0])
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/create-cards/", safeNext("/create-cards/"))
	assert.Equal(t, "/", safeNext("https://evil.example"))
	assert.Equal(t, "/", safeNext("//evil.example"))
	assert.Equal(t, "/", safeNext(""))
}

func TestNewSubject(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "alice")

	rec := env.get(t, "/new-subject/", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "#FFB5B9")

	rec = env.postForm(t, "/new-subject/", url.Values{"name": {"Networks"}, "colour": {"green"}, "days": {"0"}}, cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?status=subject-created", rec.Header().Get("Location"))

	rec = env.get(t, "/?status=subject-created", cookie)
	assert.Contains(t, rec.Body.String(), "Successfully created subject!")
	assert.Contains(t, rec.Body.String(), "Networks")

	rec = env.postForm(t, "/new-subject/", url.Values{"name": {"Maths"}, "colour": {"pink"}, "days": {"0"}}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="message red"`)
	assert.Contains(t, rec.Body.String(), `value="Maths"`)

	rec = env.postForm(t, "/new-subject/", url.Values{"name": {"Maths"}, "colour": {"red"}, "days": {"x"}}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.postForm(t, "/new-subject/", url.Values{"name": {"Maths"}, "colour": {"green"}, "days": {"2"}}, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "colour Green is already used")
}

func TestCreateCards(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "alice")

	tests := []struct {
		name     string
		form     url.Values
		expected string
	}{
		{"missing", url.Values{"commence": {"2024-02-26"}}, "Fields missing!"},
		{"bad date", url.Values{"commence": {"26-02-2024"}, "break": {"2024-03-18"}}, "Dates must be in YYYY-MM-DD format!"},
		{"order", url.Values{"commence": {"2024-03-18"}, "break": {"2024-02-26"}}, "Break date must be after commencement date!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.postForm(t, "/create-cards/", tt.form, cookie)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expected)
		})
	}

	env.seed(t, cookie)
	rec := env.get(t, "/?status=cards-created", cookie)
	assert.Contains(t, rec.Body.String(), "Successfully created cards!")
	assert.Contains(t, rec.Body.String(), "Algorithms Lecture 1")
	assert.Contains(t, rec.Body.String(), "Due in 3 days")
}

func TestRESTCards(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login(t, "alice")
	bob := env.login(t, "bob")

	rec := env.get(t, "/rest/cards/", alice)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	env.seed(t, alice)

	rec = env.get(t, "/rest/cards/", alice)
	require.Equal(t, http.StatusOK, rec.Code)
	var cards []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cards))
	require.Len(t, cards, 1)
	assert.Equal(t, "Algorithms Lecture 1", cards[0]["title"])
	assert.Equal(t, "2024-02-28", cards[0]["date"])
	assert.Equal(t, float64(3), cards[0]["time_distance"])
	id := int64(cards[0]["id"].(float64))

	body, err := json.Marshal(map[string]int64{"id": id})
	require.NoError(t, err)

	rec = env.deleteCard(t, string(body), bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.deleteCard(t, string(body), alice)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.deleteCard(t, string(body), alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for _, bad := range []string{``, `{`, `{"id": "x"}`, `{"id": 0}`, `{"card": 1}`, `{"id": 1}{"id": 2}`} {
		rec = env.deleteCard(t, bad, alice)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}

	// The next group is now Thursday's lecture, due Friday.
	rec = env.get(t, "/rest/cards/", alice)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cards))
	require.Len(t, cards, 1)
	assert.Equal(t, "Algorithms Lecture 2", cards[0]["title"])
	assert.Equal(t, float64(5), cards[0]["time_distance"])

	req := httptest.NewRequest(http.MethodPut, "/rest/cards/", nil)
	rec = env.do(t, req, alice)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRESTCardsTimeDistanceOnlyOnFirst(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "alice")
	ctx := context.Background()

	// Two subjects meeting on the same day share their review dates.
	rec := env.postForm(t, "/new-subject/", url.Values{"name": {"Algorithms"}, "colour": {"blue"}, "days": {"0"}}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	rec = env.postForm(t, "/new-subject/", url.Values{"name": {"Networks"}, "colour": {"green"}, "days": {"0"}}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	user, err := env.services.Accounts.ByUsername(ctx, "alice")
	require.NoError(t, err)
	_, err = env.services.Regenerator.Regenerate(ctx, user.ID, "2024-02-26", "2024-03-18")
	require.NoError(t, err)

	rec = env.get(t, "/rest/cards/", cookie)
	var cards []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cards))
	require.Len(t, cards, 2)
	assert.Equal(t, float64(2), cards[0]["time_distance"])
	assert.NotContains(t, cards[1], "time_distance")
}

func TestDeleteSubject(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "alice")
	env.seed(t, cookie)

	rec := env.get(t, "/delete-subject/?name=Algorithms", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Delete Algorithms?")

	rec = env.get(t, "/delete-subject/?name=Nope", cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = env.postForm(t, "/delete-subject/?name=Algorithms", url.Values{"confirm": {"no"}}, cookie)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	rec = env.get(t, "/", cookie)
	assert.Contains(t, rec.Body.String(), "Algorithms Lecture 1")

	rec = env.postForm(t, "/delete-subject/?name=Algorithms", url.Values{"confirm": {"yes"}}, cookie)
	assert.Equal(t, "/?status=subject-deleted", rec.Header().Get("Location"))

	rec = env.get(t, "/rest/cards/", cookie)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = env.postForm(t, "/delete-subject/?name=Algorithms", url.Values{"confirm": {"yes"}}, cookie)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestCalendarFeed(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "alice")
	env.seed(t, cookie)

	rec := env.get(t, "/calendar.ics", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Equal(t, 72, strings.Count(body, "BEGIN:VEVENT"))
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func TestHealthAndStatic(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = env.get(t, "/static/style.css", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	down, err := NewServer(failingPinger{}, env.services, Options{}, logger.Discard())
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIndexIgnoresUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "alice")

	rec := env.get(t, "/?status=<script>", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "message green")
	assert.NotContains(t, rec.Body.String(), "<script>")
	assert.Contains(t, rec.Body.String(), "No cards yet")
}

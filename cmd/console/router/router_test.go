package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sw360-console/cmd/console/auth"
	"sw360-console/cmd/console/handlers"
	"sw360-console/cmd/console/services"
	"sw360-console/cmd/console/workspace"
	"sw360-console/config"
	"sw360-console/httpclient"
	"sw360-console/notify"
	"sw360-console/session"
	"sw360-console/sw360"
)

// fakeSW360 answers the handful of SW360 endpoints the console calls.
type fakeSW360 struct {
	mu          sync.Mutex
	listStatus  int
	listBody    string
	listDelay   chan struct{}
	queries     []url.Values
	patches     []map[string]any
	deleted     []string
	rejectToken bool
}

func (f *fakeSW360) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/authorization/client-management", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || pass != "pw" || user == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `[{"client_id":"cid","client_secret":"csecret"}]`)
	})
	mux.HandleFunc("/authorization/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		_, _ = io.WriteString(w, `{"access_token":"tok-`+r.PostForm.Get("username")+`","token_type":"bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/resource/api/", func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		f.mu.Lock()
		reject := f.rejectToken
		f.mu.Unlock()
		if r.URL.Path == "/resource/api" || r.URL.Path == "/resource/api/" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if !strings.HasPrefix(token, "tok-") || reject {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/hal+json")
		path := strings.TrimPrefix(r.URL.Path, "/resource/api/")
		switch {
		case path == "users/profile":
			user := strings.TrimPrefix(token, "tok-")
			group := session.GroupAdmin
			if strings.HasPrefix(user, "security") {
				group = session.GroupSecurityUser
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"email": user, "fullName": "Test " + user, "userGroup": group})
		case path == "components" || path == "vendors":
			f.mu.Lock()
			f.queries = append(f.queries, r.URL.Query())
			status, body, delay := f.listStatus, f.listBody, f.listDelay
			f.mu.Unlock()
			if delay != nil {
				<-delay
			}
			if status != 0 {
				w.WriteHeader(status)
			}
			if body == "" {
				body = componentsEnvelope
			}
			_, _ = io.WriteString(w, body)
		case path == "components/c1" && r.Method == http.MethodGet:
			_, _ = io.WriteString(w, `{"id":"c1","name":"zlib","homepage":"https://zlib.net","componentType":"OSS","_links":{"self":{"href":"http://sw360/resource/api/components/c1"}}}`)
		case path == "components/c1" && r.Method == http.MethodPatch:
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.mu.Lock()
			f.patches = append(f.patches, body)
			f.mu.Unlock()
			_, _ = io.WriteString(w, `{"id":"c1","name":"zlib"}`)
		case path == "components/c1" && r.Method == http.MethodDelete:
			f.mu.Lock()
			f.deleted = append(f.deleted, "c1")
			f.mu.Unlock()
			w.WriteHeader(http.StatusOK)
		case path == "components/c1/releases":
			_, _ = io.WriteString(w, `{"_embedded":{"sw360:releases":[{"id":"r1","name":"zlib","version":"1.3.1","clearingState":"APPROVED"}]}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"not found"}`)
		}
	})
	return mux
}

func (f *fakeSW360) set(fn func(f *fakeSW360)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeSW360) recorded() (patches []map[string]any, deleted []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append(patches, f.patches...), append(deleted, f.deleted...)
}

func (f *fakeSW360) lastQuery() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return nil
	}
	return f.queries[len(f.queries)-1]
}

const componentsEnvelope = `{
  "_embedded": {"sw360:components": [
    {"id":"c1","name":"zlib","componentType":"OSS","mainLicenseIds":["Zlib"],"defaultVendor":{"shortName":"Mark Adler"},"_links":{"self":{"href":"http://sw360/resource/api/components/c1"}}},
    {"id":"c2","name":"openssl","componentType":"OSS","_links":{"self":{"href":"http://sw360/resource/api/components/c2"}}}
  ]},
  "page": {"size": 10, "totalElements": 2, "totalPages": 1, "number": 0}
}`

type testConsole struct {
	router  *gin.Engine
	env     *handlers.Env
	backend *fakeSW360
}

func newTestConsole(t *testing.T, renderWait time.Duration) *testConsole {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := &fakeSW360{}
	server := httptest.NewServer(backend.handler(t))
	t.Cleanup(server.Close)

	httpCfg := httpclient.Config{Timeout: 5 * time.Second}
	client := sw360.NewClient(
		httpclient.NewBaseClient(server.URL+"/resource/api", httpCfg),
		httpclient.NewBaseClient(server.URL+"/authorization", httpclient.Config{Timeout: 5 * time.Second, Redact: true}),
	)
	tokens, err := auth.NewJWTManager("test-secret", "", time.Hour)
	require.NoError(t, err)
	sessions := session.NewManager(session.NewMemoryStore(), time.Hour)
	ws := workspace.New(sessions.Events())
	t.Cleanup(ws.Close)
	flash := notify.NewFlash(5, time.Minute)
	sessions.Events().Subscribe(func(ev session.Event) { flash.Forget(string(ev.SessionID)) })

	env := &handlers.Env{
		Client:     client,
		Sessions:   sessions,
		Auth:       services.NewAuthService(client, sessions, tokens),
		Components: services.NewComponentService(client),
		Workspace:  ws,
		Flash:      flash,
		Cookie:     auth.Cookie{Name: "sw360_session"},
		Listing: config.ListingConfig{
			PageEntries:     10,
			ProcessingDelay: 700 * time.Millisecond,
			PageSizes:       []int{10, 25, 50, 100},
			RenderWait:      renderWait,
		},
		Backend:   config.BackendConfig{Timeout: 5 * time.Second},
		Resources: handlers.Catalog(),
	}
	return &testConsole{
		router:  New(env, tokens, []string{"http://allowed.example"}),
		env:     env,
		backend: backend,
	}
}

func (tc *testConsole) do(method, target string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	tc.router.ServeHTTP(rec, req)
	return rec
}

func (tc *testConsole) signIn(t *testing.T, user string) *http.Cookie {
	t.Helper()
	rec := tc.do(http.MethodPost, "/signin", url.Values{"username": {user}, "password": {"pw"}, "next": {"/components"}}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/components", rec.Header().Get("Location"))
	for _, c := range rec.Result().Cookies() {
		if c.Name == "sw360_session" {
			return c
		}
	}
	t.Fatalf("sign-in set no session cookie")
	return nil
}

const canonicalComponents = "/components?page=0&page_entries=10&sort="

func TestSignInAndListComponents(t *testing.T) {
	tc := newTestConsole(t, 2*time.Second)
	cookie := tc.signIn(t, "admin@sw360.org")

	rec := tc.do(http.MethodGet, "/components", nil, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, canonicalComponents, rec.Header().Get("Location"))

	rec = tc.do(http.MethodGet, canonicalComponents, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-key="c1"`)
	assert.Contains(t, body, "openssl")
	assert.Contains(t, body, "Components (2)")
	assert.Contains(t, body, "Showing 1 to 2 of 2 entries")
	assert.Contains(t, body, `data-column="action"`)
	assert.Empty(t, rec.Header().Get("Refresh"))

	q := tc.backend.lastQuery()
	assert.Equal(t, "0", q.Get("page"))
	assert.Equal(t, "10", q.Get("page_entries"))
	assert.False(t, q.Has("sort"))
	assert.Equal(t, 1, tc.env.Workspace.Len())
}

func TestFilterChangeResetsPageAndKeepsSort(t *testing.T) {
	tc := newTestConsole(t, 2*time.Second)
	cookie := tc.signIn(t, "admin@sw360.org")

	rec := tc.do(http.MethodGet, "/components?page_entries=25&sort=name,desc", nil, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/components?page=0&page_entries=25&sort=name%2Cdesc", rec.Header().Get("Location"))

	rec = tc.do(http.MethodGet, "/components?page=1&page_entries=25&sort=name,desc", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = tc.do(http.MethodGet, "/components?name=zlib&type=", nil, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/components?name=zlib&page=0&page_entries=25&sort=name%2Cdesc", rec.Header().Get("Location"))

	rec = tc.do(http.MethodGet, rec.Header().Get("Location"), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="zlib"`)

	q := tc.backend.lastQuery()
	assert.Equal(t, "zlib", q.Get("name"))
	assert.Equal(t, "0", q.Get("page"))
	assert.Equal(t, "name,desc", q.Get("sort"))
}

func TestPagesRequireSession(t *testing.T) {
	tc := newTestConsole(t, time.Second)

	rec := tc.do(http.MethodGet, "/components?name=zlib", nil, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/signin?next=%2Fcomponents%3Fname%3Dzlib", rec.Header().Get("Location"))

	forged := &http.Cookie{Name: "sw360_session", Value: "not-a-jwt"}
	rec = tc.do(http.MethodGet, "/components", nil, forged)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = tc.do(http.MethodGet, "/signin?reason=session_expired", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Your session has expired")
}

func TestSignInRejectsBadPassword(t *testing.T) {
	tc := newTestConsole(t, time.Second)

	rec := tc.do(http.MethodPost, "/signin", url.Values{"username": {"admin@sw360.org"}, "password": {"wrong"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid username or password.")
	assert.Contains(t, rec.Body.String(), `value="admin@sw360.org"`)
	assert.Empty(t, rec.Result().Cookies())
}

func TestSignOutEndsSession(t *testing.T) {
	tc := newTestConsole(t, 2*time.Second)
	cookie := tc.signIn(t, "admin@sw360.org")
	rec := tc.do(http.MethodGet, canonicalComponents, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, tc.env.Workspace.Len())

	rec = tc.do(http.MethodPost, "/signout", url.Values{}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/signin?reason=signed_out", rec.Header().Get("Location"))
	assert.Equal(t, 0, tc.env.Workspace.Len())

	rec = tc.do(http.MethodGet, canonicalComponents, nil, cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/signin"))
}

func TestRejectedTokenSignsOut(t *testing.T) {
	tc := newTestConsole(t, 2*time.Second)
	cookie := tc.signIn(t, "admin@sw360.org")
	tc.backend.set(func(f *fakeSW360) { f.rejectToken = true })

	rec := tc.do(http.MethodGet, canonicalComponents, nil, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/signin?reason=credential_rejected", rec.Header().Get("Location"))
	assert.Equal(t, 0, tc.env.Workspace.Len())

	rec = tc.do(http.MethodGet, canonicalComponents, nil, cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

var dismissAction = regexp.MustCompile(`action="/notifications/([0-9a-f-]{36})/dismiss"`)

func TestBackendErrorBecomesDismissibleNotification(t *testing.T) {
	tc := newTestConsole(t, 2*time.Second)
	cookie := tc.signIn(t, "admin@sw360.org")
	tc.backend.set(func(f *fakeSW360) {
		f.listStatus = http.StatusInternalServerError
		f.listBody = `{"message":"boom"}`
	})

	rec := tc.do(http.MethodGet, canonicalComponents, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "boom")
	assert.Contains(t, body, "table-empty")
	match := dismissAction.FindStringSubmatch(body)
	require.Len(t, match, 2)
	dismiss := "/notifications/" + match[1] + "/dismiss"

	rec = tc.do(http.MethodPost, "/notifications/0/dismiss", url.Values{"return": {canonicalComponents}}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	tc.backend.set(func(f *fakeSW360) { f.listStatus, f.listBody = 0, "" })
	rec = tc.do(http.MethodPost, dismiss, url.Values{"return": {canonicalComponents}}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, canonicalComponents, rec.Header().Get("Location"))

	rec = tc.do(http.MethodGet, canonicalComponents, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")

	rec = tc.do(http.MethodPost, dismiss, url.Values{"return": {"//evil.example"}}, cookie)
	assert.Equal(t, "/components", rec.Header().Get("Location"))
}

func TestSlowFetchRendersProcessing(t *testing.T) {
	tc := newTestConsole(t, 50*time.Millisecond)
	cookie := tc.signIn(t, "admin@sw360.org")
	release := make(chan struct{})
	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }
	t.Cleanup(unblock)
	tc.backend.set(func(f *fakeSW360) { f.listDelay = release })

	rec := tc.do(http.MethodGet, canonicalComponents, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Refresh"))
	assert.Contains(t, rec.Body.String(), "Processing...")
	assert.Contains(t, rec.Body.String(), `http-equiv="refresh"`)

	_, ok := tc.env.Workspace.Lookup(workspace.Key{Session: sessionIDOf(t, cookie), Resource: "components"})
	require.True(t, ok)
	unblock()
	require.Eventually(t, func() bool {
		rec = tc.do(http.MethodGet, canonicalComponents, nil, cookie)
		return rec.Header().Get("Refresh") == ""
	}, 2*time.Second, 20*time.Millisecond)
	assert.Contains(t, rec.Body.String(), "openssl")
	assert.NotContains(t, rec.Body.String(), "Processing...")
}

func TestRestrictedUserCannotEdit(t *testing.T) {
	tc := newTestConsole(t, 2*time.Second)
	cookie := tc.signIn(t, "security@sw360.org")

	rec := tc.do(http.MethodGet, canonicalComponents, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `data-column="action"`)

	rec = tc.do(http.MethodGet, "/components/c1/edit", nil, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = tc.do(http.MethodPost, "/components/c1/delete", url.Values{}, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	_, deleted := tc.backend.recorded()
	assert.Empty(t, deleted)
}

func TestComponentDetailEditAndDelete(t *testing.T) {
	tc := newTestConsole(t, 2*time.Second)
	cookie := tc.signIn(t, "admin@sw360.org")

	rec := tc.do(http.MethodGet, "/components/c1", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "1.3.1")
	assert.Contains(t, rec.Body.String(), "https://zlib.net")

	rec = tc.do(http.MethodGet, "/components/c1/edit", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="zlib"`)

	form := url.Values{
		"name":           {"zlib"},
		"component_type": {"OSS"},
		"homepage":       {"https://zlib.net"},
		"description":    {"A massively spiffy compression library"},
	}
	rec = tc.do(http.MethodPost, "/components/c1/edit", form, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/components/c1", rec.Header().Get("Location"))
	patches, _ := tc.backend.recorded()
	require.Len(t, patches, 1)
	assert.Equal(t, map[string]any{"description": "A massively spiffy compression library"}, patches[0])

	rec = tc.do(http.MethodGet, "/components/c1", nil, cookie)
	assert.Contains(t, rec.Body.String(), "Component zlib updated.")

	rec = tc.do(http.MethodPost, "/components/c1/delete", url.Values{}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	_, deleted := tc.backend.recorded()
	assert.Equal(t, []string{"c1"}, deleted)

	rec = tc.do(http.MethodGet, "/components/missing", nil, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = tc.do(http.MethodGet, "/components/bad%20id", nil, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIList(t *testing.T) {
	tc := newTestConsole(t, time.Second)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/components?name=zlib&page_entries=25&sort=name,asc", nil)
	req.Header.Set("Authorization", "Bearer tok-admin")
	rec := httptest.NewRecorder()
	tc.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Resource string            `json:"resource"`
		Rows     []sw360.Component `json:"rows"`
		Page     struct {
			TotalElements int `json:"totalElements"`
		} `json:"page"`
		Query struct {
			PageEntries int    `json:"page_entries"`
			Sort        string `json:"sort"`
		} `json:"query"`
		Filters map[string]string `json:"filters"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "components", body.Resource)
	assert.Len(t, body.Rows, 2)
	assert.Equal(t, 2, body.Page.TotalElements)
	assert.Equal(t, 25, body.Query.PageEntries)
	assert.Equal(t, "name,asc", body.Query.Sort)
	assert.Equal(t, map[string]string{"name": "zlib"}, body.Filters)
	assert.Equal(t, "zlib", tc.backend.lastQuery().Get("name"))

	rec = httptest.NewRecorder()
	tc.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/components", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/widgets", nil)
	req.Header.Set("Authorization", "Bearer tok-admin")
	rec = httptest.NewRecorder()
	tc.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/vendors", nil)
	req.Header.Set("Authorization", "Bearer expired")
	rec = httptest.NewRecorder()
	tc.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	tc.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/resources", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"licenses"`)
}

func TestAPICORSPreflight(t *testing.T) {
	tc := newTestConsole(t, time.Second)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/components", nil)
	req.Header.Set("Origin", "http://allowed.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	tc.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://allowed.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	tc := newTestConsole(t, time.Second)

	rec := httptest.NewRecorder()
	tc.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func sessionIDOf(t *testing.T, cookie *http.Cookie) session.ID {
	t.Helper()
	tokens, err := auth.NewJWTManager("test-secret", "", time.Hour)
	require.NoError(t, err)
	id, err := tokens.Parse(cookie.Value)
	require.NoError(t, err)
	return id
}

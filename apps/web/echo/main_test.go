package echoweb_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/dailies/apps/web/echo"
	"github.com/trezcool/dailies/core"
	"github.com/trezcool/dailies/core/access"
	"github.com/trezcool/dailies/core/daily"
	"github.com/trezcool/dailies/core/directory"
	"github.com/trezcool/dailies/core/report"
	inmemdb "github.com/trezcool/dailies/storage/database/inmem"
	"github.com/trezcool/dailies/tests"
)

type testApp struct {
	conf      *core.Config
	dirRepo   directory.Repository
	dailyRepo daily.Repository
	logger    *testutil.Logger
	daily     *Server
	dashboard *Server
}

type setupOptions struct {
	conf      *core.Config
	dirRepo   directory.Repository
	dailyRepo daily.Repository
	advisory  core.AdvisoryService
}

func setup(t *testing.T, opts setupOptions) *testApp {
	t.Helper()
	db := inmemdb.Open()

	app := &testApp{conf: opts.conf, dirRepo: opts.dirRepo, dailyRepo: opts.dailyRepo, logger: new(testutil.Logger)}
	if app.conf == nil {
		app.conf = testutil.NewConfig()
	}
	if app.dirRepo == nil {
		app.dirRepo = inmemdb.NewDirectoryRepository(db)
	}
	if app.dailyRepo == nil {
		app.dailyRepo = inmemdb.NewDailyRepository(db)
	}

	validate, translator := core.NewValidator()
	daily.InitValidators(validate, translator)

	dirSvc := directory.NewService(app.dirRepo)
	dailySvc := daily.NewService(app.dailyRepo, validate, nil, app.logger, daily.Options{
		ResetAfterSubmit: app.conf.Session.ResetAfterSubmit,
	})
	deps := ServerDeps{
		Conf:       app.conf,
		Logger:     app.logger,
		Sessions:   inmemdb.NewSessionStore(db),
		Gate:       access.NewGate(dirSvc, app.conf.Admin),
		DailySvc:   dailySvc,
		ReportSvc:  report.NewService(dirSvc, dailySvc, opts.advisory, app.logger),
		Translator: translator,
	}

	var err error
	app.daily, err = NewDailyServer(deps)
	require.NoError(t, err)
	app.dashboard, err = NewDashboardServer(deps)
	require.NoError(t, err)
	return app
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	cookie   *http.Cookie
	wantCode int
	wantData []byte
	wantBody string // substring of an HTML response
}

func newCookieRequest(method, path string, cookie *http.Cookie, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	if bytes.HasPrefix(body.Bytes(), []byte("{")) {
		req.Header.Set("Content-Type", "application/json")
	} else {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req, httptest.NewRecorder()
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newCookieRequest(method, path, nil, data...)
}

func formBody(kv ...string) []byte {
	v := make(url.Values)
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return []byte(v.Encode())
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData != nil {
		ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
		if err != nil {
			t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
		}
		if !ok {
			t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
		}
	}
	if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
		t.Errorf("failed! body does not contain %q:\n%s", tt.wantBody, rec.Body.String())
	}
}

func runTests(t *testing.T, srv http.Handler, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newCookieRequest(tt.method, tt.path, tt.cookie, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

// sessionCookie returns the session cookie set by `rec`.
func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if strings.HasPrefix(c.Name, "dailies_session") {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

// login admits a session through the login form and returns its cookie.
func login(t *testing.T, srv http.Handler, body []byte) *http.Cookie {
	t.Helper()
	req, rec := newRequest(http.MethodPost, "/login", body)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	return sessionCookie(t, rec)
}

package echoweb

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/dailies/core"
	"github.com/trezcool/dailies/core/access"
	"github.com/trezcool/dailies/core/daily"
	"github.com/trezcool/dailies/core/report"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Sessions   access.SessionStore
		Gate       *access.Gate
		DailySvc   *daily.Service
		ReportSvc  *report.Service
		Translator ut.Translator
	}

	// Server serves one of the apps (student form or admin dashboard).
	Server struct {
		ServerDeps
		addr     string
		app      *echo.Echo
		sessions *sessionManager
		errors   chan error
		shutdown chan os.Signal
	}
)

// NewDailyServer builds the student form app.
func NewDailyServer(deps ServerDeps) (*Server, error) {
	s, err := newServer(deps, access.RoleStudent, deps.Conf.Server.DailyAddr, dailyPages...)
	if err != nil {
		return nil, err
	}
	registerDailyRoutes(s)
	return s, nil
}

// NewDashboardServer builds the admin dashboard app.
func NewDashboardServer(deps ServerDeps) (*Server, error) {
	s, err := newServer(deps, access.RoleAdmin, deps.Conf.Server.DashboardAddr, dashboardPages...)
	if err != nil {
		return nil, err
	}
	registerDashboardRoutes(s)
	return s, nil
}

func newServer(deps ServerDeps, role access.Role, addr string, pages ...string) (*Server, error) {
	views, err := newRenderer(append(pages, "error.html")...)
	if err != nil {
		return nil, errors.Wrap(err, "loading templates")
	}

	s := &Server{
		ServerDeps: deps,
		addr:       addr,
		app:        echo.New(),
		sessions:   newSessionManager(role, deps.Sessions, deps.Conf, deps.Logger),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	s.app.HideBanner = true
	s.app.Debug = deps.Conf.Debug
	s.app.Renderer = views
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger, deps.Translator, deps.Conf.AppName, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !deps.Conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(deps.Conf.Debug || deps.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(s.sessions.middleware)
	return s, nil
}

// Start blocks until the server stops. Listen failures are sent to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.addr); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) newPage(ctx echo.Context, title string) page {
	return page{Title: title, AppName: s.Conf.AppName, Session: contextSession(ctx)}
}

// render writes the HTML page, or its Data as JSON for API calls.
func (s *Server) render(ctx echo.Context, code int, name string, p page) error {
	if wantsJSON(ctx) {
		if p.Fields != nil {
			return ctx.JSON(code, p.Fields)
		}
		if p.Error != "" {
			return ctx.JSON(code, echo.Map{"error": p.Error})
		}
		return ctx.JSON(code, p.Data)
	}
	return ctx.Render(code, name, p)
}

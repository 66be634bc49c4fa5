package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/nexora/backend/core"
	"github.com/nexora/backend/core/quiz"
	"github.com/nexora/backend/core/task"
	"github.com/nexora/backend/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		Conf    *core.Config
		Logger  core.Logger
		UserSvc *user.Service
		QuizSvc *quiz.Service
		TaskSvc *task.Service
	}

	Server interface {
		http.Handler
		Start() error
		Stop(ctx context.Context) error
		// ShutdownSignal receives when a handler caught an unrecoverable
		// error and the server should be brought down.
		ShutdownSignal() <-chan struct{}
	}

	server struct {
		opts       *Options
		app        *echo.Echo
		shutdownCh chan struct{}
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:       opts,
		app:        echo.New(),
		shutdownCh: make(chan struct{}, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.signalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := ConfigureAuth(conf)

	registerAuthAPI(v1, jwt, s.opts.UserSvc)
	registerUserAPI(v1, jwt, s.opts.UserSvc)
	registerQuizAPI(v1, jwt, s.opts.QuizSvc, s.opts.UserSvc)
	registerTaskAPI(v1, jwt, s.opts.TaskSvc, s.opts.UserSvc)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) ShutdownSignal() <-chan struct{} { return s.shutdownCh }

func (s *server) signalShutdown() {
	select {
	case s.shutdownCh <- struct{}{}:
	default:
	}
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Nexora API!")
}

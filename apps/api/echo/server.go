package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/vitrine/core"
	"github.com/trezcool/vitrine/core/enquiry"
	"github.com/trezcool/vitrine/core/media"
	"github.com/trezcool/vitrine/core/section"
	"github.com/trezcool/vitrine/core/showcase"
	"github.com/trezcool/vitrine/core/user"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *core.Validator
		DisableReqLogs bool

		UserSvc     *user.Service
		SectionSvc  *section.Service
		ShowcaseSvc *showcase.Service
		EnquirySvc  *enquiry.Service
		MediaSvc    *media.Service
		MailSvc     core.EmailService

		// MediaDir is served at /media when uploads are stored locally.
		MediaDir string
		// StatusCheck reports whether the database is reachable.
		StatusCheck func(ctx context.Context) error
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(ctx context.Context) error
		Close() error
	}

	server struct {
		opts     Options
		app      *echo.Echo
		auth     *authenticator
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(opts Options) Server {
	s := &server{
		opts:     opts,
		app:      echo.New(),
		auth:     newAuthenticator(opts.Conf, opts.UserSvc),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: conf.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	s.app.Use(middleware.Secure())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Validate, s.auth, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	s.app.GET("/healthz", s.health)
	if s.opts.MediaDir != "" {
		s.app.Static("/media", s.opts.MediaDir)
	}

	api := s.app.Group("/api")
	jwt := s.auth.middleware(false)
	optionalJWT := s.auth.middleware(true)

	registerAuthAPI(api, jwt, s.auth, s.opts.Validate)
	registerUserAPI(api, jwt, s.auth, s.opts.Validate)
	registerSectionAPI(api, jwt, s.auth, s.opts.SectionSvc, s.opts.MailSvc)
	registerShowcaseAPI(api, jwt, optionalJWT, s.auth, s.opts.ShowcaseSvc)
	registerEnquiryAPI(api, jwt, s.auth, s.opts.EnquirySvc)
	registerMediaAPI(api, jwt, s.auth, s.opts.MediaSvc)
}

func (s *server) Start() {
	if err := s.app.Start(s.opts.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error { return s.errors }

func (s *server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, fmt.Sprintf("Welcome to %s API!", s.opts.Conf.AppName))
}

func (s *server) health(ctx echo.Context) error {
	status := echo.Map{"status": "ok", "build": s.opts.Conf.Build}
	if s.opts.StatusCheck != nil {
		if err := s.opts.StatusCheck(ctx.Request().Context()); err != nil {
			status["status"] = "db not ready"
			return ctx.JSON(http.StatusInternalServerError, status)
		}
	}
	return ctx.JSON(http.StatusOK, status)
}

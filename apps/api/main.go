package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on the default mux
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/vitrine/apps/api/echo"
	"github.com/trezcool/vitrine/core"
	"github.com/trezcool/vitrine/core/enquiry"
	"github.com/trezcool/vitrine/core/media"
	"github.com/trezcool/vitrine/core/section"
	"github.com/trezcool/vitrine/core/showcase"
	"github.com/trezcool/vitrine/core/user"
	emailsvc "github.com/trezcool/vitrine/services/email"
	logsvc "github.com/trezcool/vitrine/services/logger"
	mediasvc "github.com/trezcool/vitrine/services/media"
	"github.com/trezcool/vitrine/storage/database"
	sqlxrepos "github.com/trezcool/vitrine/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()
	store := sqlxrepos.NewStore(db)

	// set up services
	validate := core.NewValidator()
	tmpls, err := core.ParseEmailTemplates(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}

	sectionSvc := section.NewService(store.Sections(), validate)
	mailSvc, err := emailsvc.New(conf, tmpls, sectionSvc, logger, stdLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up mail: %v", err), err)
	}

	mediaStore, mediaDir, err := mediasvc.New(context.Background(), conf.Media)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up media storage: %v", err), err)
	}

	usrSvc := user.NewService(conf, store.Users(), mailSvc, validate)
	showcaseSvc := showcase.NewService(store.Showcase(), validate)
	enquirySvc := enquiry.NewService(store.Enquiries(), sectionSvc, mailSvc, logger, validate)
	mediaSvc := media.NewService(mediaStore, conf.Media.MaxUploadSize)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q, mail %s, media %s", conf.Build, conf.Mail.Backend, conf.Media.Backend))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.Options{
		Conf:        conf,
		Logger:      logger,
		Validate:    validate,
		UserSvc:     usrSvc,
		SectionSvc:  sectionSvc,
		ShowcaseSvc: showcaseSvc,
		EnquirySvc:  enquirySvc,
		MediaSvc:    mediaSvc,
		MailSvc:     mailSvc,
		MediaDir:    mediaDir,
		StatusCheck: func(ctx context.Context) error { return database.StatusCheck(ctx, db) },
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(context.Background(), db, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/vitrine/core"
	"github.com/trezcool/vitrine/core/importer"
	"github.com/trezcool/vitrine/core/section"
	"github.com/trezcool/vitrine/core/user"
	emailsvc "github.com/trezcool/vitrine/services/email"
	logsvc "github.com/trezcool/vitrine/services/logger"
	"github.com/trezcool/vitrine/storage/database"
	sqlxrepos "github.com/trezcool/vitrine/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	stdLogger := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)

	// set up DB
	db, err := openDB(conf)
	if err != nil {
		logger.Fatal("setting up database", err)
	}
	store := sqlxrepos.NewStore(db)

	// set up services
	validate := core.NewValidator()
	tmpls, err := core.ParseEmailTemplates(conf)
	if err != nil {
		logger.Fatal("parsing email templates", err)
	}
	mailSvc, err := emailsvc.New(conf, tmpls, section.NewService(store.Sections(), validate), logger, stdLogger)
	if err != nil {
		logger.Fatal("setting up mail", err)
	}

	// start CLI
	cli := commandLine{
		db:       db,
		usrSvc:   user.NewService(conf, store.Users(), mailSvc, validate),
		importer: importer.New(store, validate, logger),
		mailSvc:  mailSvc,
		out:      os.Stdout,
	}
	err = cli.run(os.Args)
	if err != nil {
		printErr(os.Stderr, err)
	}
	_ = db.Close()
	logger.Close()
	if err != nil {
		os.Exit(1)
	}
}

func openDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	return database.Open(conf)
}

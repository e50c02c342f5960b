package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/vitrine/core"
	appfs "github.com/trezcool/vitrine/fs"
)

// dsn builds the driver config. An empty dbName connects to the server without selecting a database.
func dsn(dbName string, admin bool, conf *core.Config) string {
	c := mysql.NewConfig()
	c.User = conf.Database.User
	c.Passwd = conf.Database.Password
	if admin && conf.Database.AdminUser != "" {
		c.User = conf.Database.AdminUser
		c.Passwd = conf.Database.AdminPassword
	}
	c.Net = "tcp"
	c.Addr = conf.Database.Address()
	c.DBName = dbName
	c.ParseTime = true
	c.Loc = time.UTC
	c.Collation = "utf8mb4_unicode_ci"
	// strict mode turns oversized values into errors instead of silent truncation
	c.Params = map[string]string{
		"time_zone": "'+00:00'",
		"sql_mode":  "'STRICT_ALL_TABLES,NO_ENGINE_SUBSTITUTION'",
	}
	if !conf.Database.DisableTLS {
		c.TLSConfig = "true"
	}
	return c.FormatDSN()
}

func open(dbName string, admin bool, conf *core.Config) (*sqlx.DB, error) {
	return sqlx.Open("mysql", dsn(dbName, admin, conf))
}

// Open opens the application database and waits for it to answer.
func Open(conf *core.Config) (*sqlx.DB, error) {
	db, err := open(conf.Database.Name, false, conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if conf.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(conf.Database.MaxOpenConns)
		db.SetMaxIdleConns(conf.Database.MaxOpenConns)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := ping(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

// StatusCheck returns nil if it can successfully talk to the database.
func StatusCheck(ctx context.Context, db *sqlx.DB) error {
	var ok int
	return db.QueryRowContext(ctx, "SELECT 1").Scan(&ok)
}

func quoteIdent(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

func quoteString(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `''`).Replace(s) + "'"
}

// CreateIfNotExist creates the application database and user with the admin account.
func CreateIfNotExist(conf *core.Config) error {
	db, err := open("", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	if err = ping(db.DB); err != nil {
		return errors.Wrap(err, "pinging database")
	}

	name := quoteIdent(conf.Database.Name)
	q := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci", name)
	if _, err = db.Exec(q); err != nil {
		return errors.Wrap(err, "creating database")
	}

	if conf.Database.User == "" || conf.Database.User == conf.Database.AdminUser {
		return nil
	}
	user := quoteString(conf.Database.User) + "@'%'"
	stmts := []string{
		fmt.Sprintf("CREATE USER IF NOT EXISTS %s IDENTIFIED BY %s", user, quoteString(conf.Database.Password)),
		fmt.Sprintf("GRANT ALL PRIVILEGES ON %s.* TO %s", name, user),
	}
	for _, q := range stmts {
		if _, err = db.Exec(q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

// Migrate runs a goose command (up, down, status, ...) with the embedded migrations.
func Migrate(ctx context.Context, db *sqlx.DB, command string, args ...string) error {
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect("mysql"); err != nil {
		return errors.Wrap(err, "setting migration dialect")
	}
	if err := goose.RunContext(ctx, command, db.DB, appfs.MigrationsDir, args...); err != nil {
		return errors.Wrapf(err, "migrating database (%s)", command)
	}
	return nil
}

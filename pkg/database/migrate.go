package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// gooseLogger adapts a sugared zap logger to goose.Logger.
type gooseLogger struct {
	sugar *zap.SugaredLogger
}

func (l gooseLogger) Fatalf(format string, v ...any) { l.sugar.Fatalf(format, v...) }
func (l gooseLogger) Printf(format string, v ...any) { l.sugar.Infof(format, v...) }

// Migrate applies pending schema migrations. It is meant to be called once
// at process start, before any repository touches the database.
func Migrate(ctx context.Context, db *sql.DB, logger *zap.SugaredLogger) error {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{sugar: logger})
	if err := goose.SetDialect(driverName); err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	logger.Infow("applying migrations", "dir", migrationsDir)
	if err := goose.UpContext(runCtx, db, migrationsDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

package app

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"warcdb/internal/archive"
	"warcdb/internal/config"
	"warcdb/internal/database"
	"warcdb/internal/model"
	"warcdb/internal/warcdb"
)

// WARCDBApp is the application layer between the CLI and warcdb.Service.
// It constructs all dependencies from config and closes them on Close.
type WARCDBApp struct {
	cfg     *config.Config
	db      *database.SQLiteDatabase
	service *warcdb.Service
	runID   string
	logFile *os.File
}

// NewWARCDBApp creates a fully wired WARCDBApp from the given config.
// The caller must call Close when done.
func NewWARCDBApp(cfg *config.Config) (*WARCDBApp, error) {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	runID := uuid.New().String()
	logger, logFile, err := newLogger(cfg.LogDir, runID, level)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	opener := archive.NewOpenerFromConfig(cfg, PromptPassphrase)
	svc := warcdb.NewService(db, opener, &slogAdapter{l: logger}, warcdb.RealClock{})

	return &WARCDBApp{
		cfg:     cfg,
		db:      db,
		service: svc,
		runID:   runID,
		logFile: logFile,
	}, nil
}

// AddArchives ingests the archives at locations in order and calls report
// with each archive's inserted record count. It stops at the first failure.
func (a *WARCDBApp) AddArchives(ctx context.Context, locations []string, report func(location string, count int)) (int, error) {
	return a.service.AddArchives(ctx, locations, report)
}

// Files returns every imported archive.
func (a *WARCDBApp) Files(ctx context.Context) ([]*model.File, error) {
	return a.service.Files(ctx)
}

// Requests returns the request records view.
func (a *WARCDBApp) Requests(ctx context.Context) ([]*model.Record, error) {
	return a.service.Requests(ctx)
}

// Responses returns the response records view.
func (a *WARCDBApp) Responses(ctx context.Context) ([]*model.Record, error) {
	return a.service.Responses(ctx)
}

// RunID identifies this invocation in the log.
func (a *WARCDBApp) RunID() string {
	return a.runID
}

// Close closes the database and the log file.
func (a *WARCDBApp) Close() error {
	var firstErr error
	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}

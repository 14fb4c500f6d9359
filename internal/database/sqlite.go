package database

import (
	"context"
	"database/sql"
	"fmt"

	"warcdb/internal/database/migrations"
	"warcdb/internal/model"
	"warcdb/internal/warcdb"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements the warcdb.Database interface using SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase opens the database at path and migrates it to the latest
// schema. path can be a file path or ":memory:" for an ephemeral database
// that lives as long as the returned value.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &SQLiteDatabase{
		db:   db,
		path: path,
	}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured
// and migrated.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{
		db:   db,
		path: "",
	}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection: every ":memory:" connection is a separate
	// database, and there is only ever one writer.
	db.SetMaxOpenConns(1)

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// File operations

func (s *SQLiteDatabase) InsertFile(ctx context.Context, file *model.File) (int64, error) {
	res, err := s.db.ExecContext(ctx, insertFile,
		file.Filename,
		file.Path,
		warcdb.FormatTimestamp(file.Created),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: inserting file %s: %w", warcdb.ErrStoreWrite, file.Path, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: reading file id: %w", warcdb.ErrStoreWrite, err)
	}
	file.ID = id
	return id, nil
}

func (s *SQLiteDatabase) ListFiles(ctx context.Context) ([]*model.File, error) {
	rows, err := s.db.QueryContext(ctx, selectFiles)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	defer rows.Close()

	var files []*model.File
	for rows.Next() {
		var f model.File
		if err := rows.Scan(&f.ID, &f.Filename, &f.Path, &f.Created); err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		files = append(files, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return files, nil
}

func (s *SQLiteDatabase) CountFiles(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, countFiles).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting files: %w", err)
	}
	return n, nil
}

// Record operations

func (s *SQLiteDatabase) InsertRecord(ctx context.Context, record *model.Record) (int64, error) {
	res, err := s.db.ExecContext(ctx, insertRecord, recordArgs(record)...)
	if err != nil {
		return 0, fmt.Errorf("%w: inserting record at offset %d: %w", warcdb.ErrStoreWrite, record.RecordOffset, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: reading record id: %w", warcdb.ErrStoreWrite, err)
	}
	record.ID = id
	return id, nil
}

func (s *SQLiteDatabase) FindRecordsByType(ctx context.Context, warcType string) ([]*model.Record, error) {
	return s.queryRecords(ctx, selectRecordsByType, warcType)
}

func (s *SQLiteDatabase) FindRecordsByFile(ctx context.Context, fileID int64) ([]*model.Record, error) {
	return s.queryRecords(ctx, selectRecordsByFile, fileID)
}

func (s *SQLiteDatabase) CountRecords(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, countRecords).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

func (s *SQLiteDatabase) queryRecords(ctx context.Context, query string, arg any) ([]*model.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []*model.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	return records, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements warcdb.Database interface
var _ warcdb.Database = (*SQLiteDatabase)(nil)

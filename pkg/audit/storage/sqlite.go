package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"capgw/pkg/audit"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db        *sql.DB
	config    *SQLiteConfig
	storeStmt *sql.Stmt
	logger    *slog.Logger
}

// NewSQLiteStorage creates a new SQLite storage backend.
// It initializes the database schema and enables WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "audit.storage.sqlite")

	db, err := sql.Open(sqliteDriver, config.Path)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite audit storage initialized",
		"path", config.Path,
		"driver", sqliteDriver,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return audit.NewStorageError("sqlite", "enable_wal", err)
		}
		s.logger.Debug("WAL mode enabled")
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return audit.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError("sqlite", "create_schema", err)
	}
	s.logger.Debug("database schema created")

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return audit.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return audit.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return audit.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	stmt, err := s.db.Prepare(`
		INSERT INTO audit_records (
			id, request_id, time, environment, method, path,
			status, error_kind, renewed, latency_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return audit.NewStorageError("sqlite", "prepare_store", err)
	}
	s.storeStmt = stmt

	return nil
}

// Store persists an audit record to the database.
func (s *SQLiteStorage) Store(ctx context.Context, record *audit.Record) error {
	var errorKind interface{}
	if record.ErrorKind != "" {
		errorKind = record.ErrorKind
	}

	_, err := s.storeStmt.ExecContext(ctx,
		record.ID, record.RequestID, record.Time.UTC(), record.Environment,
		record.Method, record.Path,
		record.Status, errorKind, record.Renewed,
		record.Latency.Milliseconds(),
	)
	if err != nil {
		return audit.NewStorageError("sqlite", "store", err)
	}

	return nil
}

// Count returns the total number of stored records.
func (s *SQLiteStorage) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_records").Scan(&count)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// List returns up to limit records, newest first.
func (s *SQLiteStorage) List(ctx context.Context, limit int) ([]*audit.Record, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, time, environment, method, path,
		       status, error_kind, renewed, latency_ms
		FROM audit_records
		ORDER BY time DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "list", err)
	}
	defer rows.Close()

	records := []*audit.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "list", err)
	}

	return records, nil
}

// DeleteBefore removes records older than the cutoff.
func (s *SQLiteStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM audit_records WHERE time < ?", cutoff.UTC())
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete_before", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete_before", err)
	}
	return count, nil
}

// DeleteOldest removes the n oldest records.
func (s *SQLiteStorage) DeleteOldest(ctx context.Context, n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM audit_records WHERE id IN (
			SELECT id FROM audit_records ORDER BY time ASC LIMIT ?
		)
	`, n)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete_oldest", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete_oldest", err)
	}
	return count, nil
}

// Close releases resources held by the storage backend.
func (s *SQLiteStorage) Close() error {
	if s.storeStmt != nil {
		s.storeStmt.Close()
	}
	if err := s.db.Close(); err != nil {
		return audit.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite audit storage closed")
	return nil
}

// scanRecord scans a database row into a Record.
func scanRecord(rows *sql.Rows) (*audit.Record, error) {
	var record audit.Record
	var errorKind sql.NullString
	var latencyMs int64

	err := rows.Scan(
		&record.ID, &record.RequestID, &record.Time, &record.Environment,
		&record.Method, &record.Path,
		&record.Status, &errorKind, &record.Renewed, &latencyMs,
	)
	if err != nil {
		return nil, err
	}

	if errorKind.Valid {
		record.ErrorKind = errorKind.String
	}
	record.Latency = time.Duration(latencyMs) * time.Millisecond

	return &record, nil
}

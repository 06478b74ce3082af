package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"transcode-server/internal/logging"
)

// Default timeout for database operations.
const defaultTimeout = 5 * time.Second

// ErrNotFound is returned when a media record does not exist.
var ErrNotFound = errors.New("media record not found")

// Processing status values. These are the externally visible lifecycle
// states consumed by the platform.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusFailed     = "failed"
)

// MediaRecord is one persisted media object and its processing outcome.
type MediaRecord struct {
	ID                 string     `json:"id"`
	SourcePath         string     `json:"sourcePath"`
	ProcessingStatus   string     `json:"processingStatus"`
	ProcessedPath      string     `json:"processedPath,omitempty"`
	ThumbnailPath      string     `json:"thumbnailPath,omitempty"`
	Width              int        `json:"width,omitempty"`
	Height             int        `json:"height,omitempty"`
	DurationSeconds    float64    `json:"durationSeconds,omitempty"`
	OptimizedSizeBytes int64      `json:"optimizedSizeBytes,omitempty"`
	ProcessedAt        *time.Time `json:"processedAt,omitempty"`
	ProcessingError    string     `json:"processingError,omitempty"`
}

// ProcessedResult carries the fields recorded on successful completion.
type ProcessedResult struct {
	ProcessedPath      string
	ThumbnailPath      string
	Width              int
	Height             int
	DurationSeconds    float64
	OptimizedSizeBytes int64
}

// Store manages media record persistence.
type Store struct {
	db     *sql.DB
	dbPath string
}

// New opens (or creates) the media record database at dbPath. The parent
// directory must already exist and be writable; use startup.LoadConfig to
// validate that before calling.
func New(ctx context.Context, dbPath string) (*Store, error) {
	// WAL mode and a busy timeout to avoid "database is locked" errors
	// when jobs finish concurrently.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after init failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Info("Database initialized at %s", dbPath)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS media (
		id TEXT PRIMARY KEY,
		source_path TEXT NOT NULL DEFAULT '',
		processing_status TEXT NOT NULL DEFAULT 'pending',
		processed_path TEXT,
		thumbnail_path TEXT,
		width INTEGER,
		height INTEGER,
		duration_seconds REAL,
		optimized_size_bytes INTEGER,
		processed_at INTEGER,
		processing_error TEXT,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_media_status ON media(processing_status);
	`

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ensure creates the record for id if it does not exist yet, recording the
// source path. Safe to call for every incoming job.
func (s *Store) Ensure(ctx context.Context, id, sourcePath string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO media (id, source_path) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET source_path = excluded.source_path,
			updated_at = strftime('%s', 'now')`,
		id, sourcePath)
	if err != nil {
		return fmt.Errorf("failed to ensure media record %s: %w", id, err)
	}
	return nil
}

// Get returns the record for id.
func (s *Store) Get(ctx context.Context, id string) (*MediaRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, source_path, processing_status,
			COALESCE(processed_path, ''), COALESCE(thumbnail_path, ''),
			COALESCE(width, 0), COALESCE(height, 0),
			COALESCE(duration_seconds, 0), COALESCE(optimized_size_bytes, 0),
			processed_at, COALESCE(processing_error, '')
		FROM media WHERE id = ?`, id)

	var rec MediaRecord
	var processedAt sql.NullInt64
	err := row.Scan(&rec.ID, &rec.SourcePath, &rec.ProcessingStatus,
		&rec.ProcessedPath, &rec.ThumbnailPath,
		&rec.Width, &rec.Height,
		&rec.DurationSeconds, &rec.OptimizedSizeBytes,
		&processedAt, &rec.ProcessingError)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load media record %s: %w", id, err)
	}
	if processedAt.Valid {
		t := time.Unix(processedAt.Int64, 0).UTC()
		rec.ProcessedAt = &t
	}
	return &rec, nil
}

// MarkProcessing transitions the record to the processing state.
func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	return s.pointWrite(ctx, id, `
		UPDATE media SET processing_status = ?, processing_error = NULL,
			updated_at = strftime('%s', 'now')
		WHERE id = ?`, StatusProcessing, id)
}

// MarkProcessed records a successful outcome.
func (s *Store) MarkProcessed(ctx context.Context, id string, res ProcessedResult) error {
	return s.pointWrite(ctx, id, `
		UPDATE media SET processing_status = ?, processed_path = ?,
			thumbnail_path = ?, width = ?, height = ?, duration_seconds = ?,
			optimized_size_bytes = ?, processed_at = strftime('%s', 'now'),
			processing_error = NULL, updated_at = strftime('%s', 'now')
		WHERE id = ?`,
		StatusProcessed, res.ProcessedPath, res.ThumbnailPath,
		res.Width, res.Height, res.DurationSeconds,
		res.OptimizedSizeBytes, id)
}

// MarkFailed records a terminal failure with its error message.
func (s *Store) MarkFailed(ctx context.Context, id, message string) error {
	return s.pointWrite(ctx, id, `
		UPDATE media SET processing_status = ?, processing_error = ?,
			updated_at = strftime('%s', 'now')
		WHERE id = ?`, StatusFailed, message, id)
}

func (s *Store) pointWrite(ctx context.Context, id, query string, args ...interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update media record %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

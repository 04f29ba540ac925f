package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/ingestcas/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "ingestcas.db"

// Result kinds stored in the results table.
const (
	KindFile   = "file"
	KindScrape = "scrape"
	KindAPI    = "api"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB records ingestion runs and their per-unit results.
// It is safe for concurrent use; writes are serialized on one connection.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string

	now func() time.Time
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
		now:    time.Now,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		flow_name TEXT NOT NULL,
		config_path TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		kind TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL,
		data_source TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		content_hash TEXT NOT NULL DEFAULT '',
		storage_path TEXT NOT NULL DEFAULT '',
		manifest_path TEXT NOT NULL DEFAULT '',
		error_category TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		recorded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
	CREATE INDEX IF NOT EXISTS idx_results_hash ON results(content_hash);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// Run is one recorded ingestion run.
type Run struct {
	ID         string    `json:"id"`
	FlowName   string    `json:"flow_name"`
	ConfigPath string    `json:"config_path,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	// FinishedAt is zero while the run is in progress.
	FinishedAt time.Time       `json:"finished_at"`
	Status     model.RunStatus `json:"status"`
	// ResultCount is filled by ListRuns and GetRun.
	ResultCount int `json:"result_count"`
}

// ResultRecord is one recorded unit outcome.
type ResultRecord struct {
	ID            int64               `json:"id"`
	RunID         string              `json:"run_id"`
	Kind          string              `json:"kind"`
	Name          string              `json:"name,omitempty"`
	URL           string              `json:"url"`
	DataSource    string              `json:"data_source,omitempty"`
	Status        model.Status        `json:"status"`
	ContentHash   string              `json:"content_hash,omitempty"`
	StoragePath   string              `json:"storage_path,omitempty"`
	ManifestPath  string              `json:"manifest_path,omitempty"`
	ErrorCategory model.ErrorCategory `json:"error_category,omitempty"`
	ErrorMessage  string              `json:"error_message,omitempty"`
	RecordedAt    time.Time           `json:"recorded_at"`
}

// StartRun inserts a new run with a random UUID and status RUNNING.
func (h *HistoryDB) StartRun(ctx context.Context, flowName, configPath string) (*Run, error) {
	run := &Run{
		ID:         uuid.NewString(),
		FlowName:   flowName,
		ConfigPath: configPath,
		StartedAt:  model.NewUTCTime(h.now()).Time,
		Status:     model.RunRunning,
	}

	query := `
	INSERT INTO runs (id, flow_name, config_path, started_at, status)
	VALUES (?, ?, ?, ?, ?)
	`
	_, err := h.db.ExecContext(ctx, query,
		run.ID,
		run.FlowName,
		run.ConfigPath,
		formatTimestamp(run.StartedAt),
		string(run.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	return run, nil
}

// FinishRun sets the final status and finish time of a run.
func (h *HistoryDB) FinishRun(ctx context.Context, runID string, status model.RunStatus) error {
	query := `UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`

	result, err := h.db.ExecContext(ctx, query, string(status), formatTimestamp(h.now()), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// RecordFile records the outcome of a file acquisition.
func (h *HistoryDB) RecordFile(ctx context.Context, runID string, r model.FileResult) error {
	return h.insertResult(ctx, ResultRecord{
		RunID:         runID,
		Kind:          KindFile,
		Name:          r.OriginalFilename,
		URL:           r.URL,
		DataSource:    r.DataSource,
		Status:        r.Status,
		ContentHash:   r.ContentHash,
		StoragePath:   r.StoragePath,
		ManifestPath:  r.ManifestPath,
		ErrorCategory: r.ErrorCategory,
		ErrorMessage:  r.ErrorMessage,
	})
}

// RecordScrape records the outcome of a page scrape. The canonical URL hash
// is stored as the content hash.
func (h *HistoryDB) RecordScrape(ctx context.Context, runID string, r model.ScrapeResult, dataSource, manifestPath string) error {
	return h.insertResult(ctx, ResultRecord{
		RunID:         runID,
		Kind:          KindScrape,
		URL:           r.OriginalURL,
		DataSource:    dataSource,
		Status:        r.Status,
		ContentHash:   r.CanonicalURLHash,
		ManifestPath:  manifestPath,
		ErrorCategory: r.ErrorCategory,
		ErrorMessage:  r.ErrorMessage,
	})
}

// RecordAPI records the outcome of an API poll.
func (h *HistoryDB) RecordAPI(ctx context.Context, runID string, r model.APIResult, name, dataSource string) error {
	return h.insertResult(ctx, ResultRecord{
		RunID:         runID,
		Kind:          KindAPI,
		Name:          name,
		URL:           r.URL,
		DataSource:    dataSource,
		Status:        r.Status,
		ErrorCategory: r.ErrorCategory,
		ErrorMessage:  r.ErrorMessage,
	})
}

// insertResult inserts rec only if its run exists.
func (h *HistoryDB) insertResult(ctx context.Context, rec ResultRecord) error {
	query := `
	INSERT INTO results (run_id, kind, name, url, data_source, status, content_hash,
		storage_path, manifest_path, error_category, error_message, recorded_at)
	SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
	WHERE EXISTS (SELECT 1 FROM runs WHERE id = ?)
	`

	result, err := h.db.ExecContext(ctx, query,
		rec.RunID,
		rec.Kind,
		rec.Name,
		rec.URL,
		rec.DataSource,
		string(rec.Status),
		rec.ContentHash,
		rec.StoragePath,
		rec.ManifestPath,
		string(rec.ErrorCategory),
		rec.ErrorMessage,
		formatTimestamp(h.now()),
		rec.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to record %s result: %w", rec.Kind, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to record %s result: %w", rec.Kind, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, rec.RunID)
	}
	return nil
}

const runColumns = `
	SELECT r.id, r.flow_name, r.config_path, r.started_at, r.finished_at, r.status,
		(SELECT COUNT(*) FROM results WHERE run_id = r.id)
	FROM runs r
`

// ListRuns returns the most recent runs, newest first.
// A non-positive limit returns all runs.
func (h *HistoryDB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := runColumns + " ORDER BY r.started_at DESC, r.rowid DESC"
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun returns a single run.
func (h *HistoryDB) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := h.db.QueryRowContext(ctx, runColumns+" WHERE r.id = ?", runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, err
}

// ListResults returns the results of a run in the order they were recorded.
func (h *HistoryDB) ListResults(ctx context.Context, runID string) ([]ResultRecord, error) {
	query := `
	SELECT id, run_id, kind, name, url, data_source, status, content_hash,
		storage_path, manifest_path, error_category, error_message, recorded_at
	FROM results
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := h.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []ResultRecord
	for rows.Next() {
		var rec ResultRecord
		var status, category, recordedAt string

		err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&rec.Kind,
			&rec.Name,
			&rec.URL,
			&rec.DataSource,
			&status,
			&rec.ContentHash,
			&rec.StoragePath,
			&rec.ManifestPath,
			&category,
			&rec.ErrorMessage,
			&recordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		rec.Status = model.Status(status)
		rec.ErrorCategory = model.ErrorCategory(category)
		rec.RecordedAt = parseTimestamp(recordedAt)
		results = append(results, rec)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var startedAt, finishedAt, status string

	err := row.Scan(
		&run.ID,
		&run.FlowName,
		&run.ConfigPath,
		&startedAt,
		&finishedAt,
		&status,
		&run.ResultCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.StartedAt = parseTimestamp(startedAt)
	run.FinishedAt = parseTimestamp(finishedAt)
	run.Status = model.RunStatus(status)
	return &run, nil
}

// formatTimestamp stores times in the manifest timestamp layout so that
// text ordering matches chronological ordering.
func formatTimestamp(t time.Time) string {
	return model.NewUTCTime(t).Format("2006-01-02T15:04:05.000000Z")
}

// parseTimestamp parses a stored timestamp. Empty or unparseable values
// yield the zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := model.ParseTimestamp(s)
	if err != nil {
		return time.Time{}
	}
	return t.Time
}

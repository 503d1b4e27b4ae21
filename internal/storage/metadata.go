package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/codebuildervaibhav/video2podcast/internal/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrJobNotFound is returned by GetJob for unknown ids.
var ErrJobNotFound = errors.New("job not found")

// InterruptedMessage is recorded on jobs that were cut short by a restart.
const InterruptedMessage = "interrupted by restart"

// MetadataDB handles SQLite database operations
type MetadataDB struct {
	db *sql.DB
}

// NewMetadataDB opens (or creates) the database and applies migrations
func NewMetadataDB(dbPath string) (*MetadataDB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time; sqlite serializes anyway
	db.SetMaxOpenConns(1)

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &MetadataDB{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("failed to init migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database schema is dirty at version %d", version)
	}

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		slog.Debug("job schema up to date", slog.Uint64("version", uint64(version)))
	case err != nil:
		return fmt.Errorf("failed to migrate database: %w", err)
	default:
		newVersion, _, _ := m.Version()
		slog.Info("job schema migrated", slog.Uint64("version", uint64(newVersion)))
	}
	// m.Close would close db as well
	return src.Close()
}

// SaveJob inserts or replaces the row of rec.ID
func (mdb *MetadataDB) SaveJob(rec types.JobRecord) error {
	result := ""
	if rec.Result != nil {
		b, err := json.Marshal(rec.Result)
		if err != nil {
			return fmt.Errorf("failed to encode job result: %w", err)
		}
		result = string(b)
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}

	query := `
	INSERT INTO jobs (id, request_name, source_type, source, target_lang, backend, status, stage, error, result, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		status = excluded.status,
		stage = excluded.stage,
		error = excluded.error,
		result = excluded.result,
		updated_at = excluded.updated_at
	`
	_, err := mdb.db.Exec(query, rec.ID, rec.RequestName, rec.SourceType, rec.Source, rec.TargetLang, rec.Backend,
		rec.Status, rec.Stage, rec.Error, result, formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save job %s: %w", rec.ID, err)
	}
	return nil
}

const jobColumns = `id, request_name, source_type, source, target_lang, backend, status, stage, error, result, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*types.JobRecord, error) {
	var (
		rec                  types.JobRecord
		result               string
		createdAt, updatedAt string
	)
	if err := row.Scan(&rec.ID, &rec.RequestName, &rec.SourceType, &rec.Source, &rec.TargetLang, &rec.Backend,
		&rec.Status, &rec.Stage, &rec.Error, &result, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if result != "" {
		rec.Result = &types.PipelineResult{}
		if err := json.Unmarshal([]byte(result), rec.Result); err != nil {
			return nil, fmt.Errorf("corrupt result for job %s: %w", rec.ID, err)
		}
	}
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)
	return &rec, nil
}

// GetJob retrieves a job by ID
func (mdb *MetadataDB) GetJob(jobID string) (*types.JobRecord, error) {
	row := mdb.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, jobID)
	rec, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return rec, nil
}

// ListJobs returns the most recent jobs first
func (mdb *MetadataDB) ListJobs(limit int) ([]types.JobRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := mdb.db.Query(`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []types.JobRecord
	for rows.Next() {
		rec, err := scanJob(rows)
		if err != nil {
			slog.Warn("skipping unreadable job row", slog.Any("error", err))
			continue
		}
		jobs = append(jobs, *rec)
	}
	return jobs, rows.Err()
}

// MarkInterrupted fails every job that was queued or running when the
// previous process stopped. Pipelines are not resumable.
func (mdb *MetadataDB) MarkInterrupted() (int64, error) {
	res, err := mdb.db.Exec(`UPDATE jobs SET status = ?, error = ?, updated_at = ? WHERE status IN (?, ?)`,
		types.StatusFailed, InterruptedMessage, formatTime(time.Now()), types.StatusQueued, types.StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("failed to mark interrupted jobs: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection
func (mdb *MetadataDB) Close() error {
	return mdb.db.Close()
}

// fixed width so that text order is time order
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/claims-tracker/internal/common"
	"github.com/joseph-ayodele/claims-tracker/internal/entity"
)

// RunRepository persists pipeline runs.
type RunRepository interface {
	Migrate(ctx context.Context) error
	Record(ctx context.Context, run entity.RunRecord) error
	ListRecent(ctx context.Context, limit int) ([]entity.RunRecord, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

const runColumns = `id, request_id, file_name, mime_type, size_bytes, stage, status,
	failed_step, error_class, error_message, llm_source, prediction, probability,
	risk_score, model_input, started_at, finished_at`

const pgRunLogDDL = `CREATE TABLE IF NOT EXISTS run_log (
	id            UUID PRIMARY KEY,
	request_id    TEXT NOT NULL,
	file_name     TEXT NOT NULL,
	mime_type     TEXT,
	size_bytes    BIGINT NOT NULL DEFAULT 0,
	stage         TEXT NOT NULL,
	status        TEXT NOT NULL,
	failed_step   TEXT,
	error_class   TEXT,
	error_message TEXT,
	llm_source    TEXT,
	prediction    TEXT,
	probability   DOUBLE PRECISION,
	risk_score    DOUBLE PRECISION,
	model_input   JSONB,
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS run_log_started_at_idx ON run_log (started_at DESC);`

const sqliteRunLogDDL = `CREATE TABLE IF NOT EXISTS run_log (
	id            TEXT PRIMARY KEY,
	request_id    TEXT NOT NULL,
	file_name     TEXT NOT NULL,
	mime_type     TEXT,
	size_bytes    INTEGER NOT NULL DEFAULT 0,
	stage         TEXT NOT NULL,
	status        TEXT NOT NULL,
	failed_step   TEXT,
	error_class   TEXT,
	error_message TEXT,
	llm_source    TEXT,
	prediction    TEXT,
	probability   REAL,
	risk_score    REAL,
	model_input   TEXT,
	started_at    TIMESTAMP NOT NULL,
	finished_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS run_log_started_at_idx ON run_log (started_at DESC);`

type rowScanner interface {
	Scan(dest ...any) error
}

func runArgs(r entity.RunRecord) []any {
	var modelInput *string
	if len(r.ModelInput) > 0 {
		s := string(r.ModelInput)
		modelInput = &s
	}
	return []any{
		r.ID.String(), r.RequestID, r.FileName, r.MimeType, r.SizeBytes, r.Stage, r.Status,
		r.FailedStep, r.ErrorClass, r.ErrorMessage, r.LLMSource, r.Prediction, r.Probability,
		r.RiskScore, modelInput, r.StartedAt.UTC(), r.FinishedAt.UTC(),
	}
}

func scanRun(s rowScanner) (entity.RunRecord, error) {
	var (
		r          entity.RunRecord
		id         string
		modelInput *string
	)
	err := s.Scan(
		&id, &r.RequestID, &r.FileName, &r.MimeType, &r.SizeBytes, &r.Stage, &r.Status,
		&r.FailedStep, &r.ErrorClass, &r.ErrorMessage, &r.LLMSource, &r.Prediction, &r.Probability,
		&r.RiskScore, &modelInput, &r.StartedAt, &r.FinishedAt,
	)
	if err != nil {
		return r, err
	}
	if r.ID, err = uuid.Parse(id); err != nil {
		return r, fmt.Errorf("run id %q: %w", id, err)
	}
	if modelInput != nil {
		r.ModelInput = json.RawMessage(*modelInput)
	}
	return r, nil
}

func placeholders(n int, style func(i int) string) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = style(i + 1)
	}
	return strings.Join(ps, ", ")
}

func insertRunSQL(style func(i int) string) string {
	return "INSERT INTO run_log (" + runColumns + ") VALUES (" + placeholders(17, style) + ")"
}

func statements(ddl string) []string {
	var out []string
	for _, stmt := range strings.Split(ddl, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func recordingError(op string, err error) error {
	return common.NewAppError(common.CodeRecording, op, err)
}

// pgRunRepo stores runs in Postgres.
type pgRunRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewPostgresRunRepository(pool *pgxpool.Pool, log *slog.Logger) RunRepository {
	return &pgRunRepo{pool: pool, log: log}
}

func (r *pgRunRepo) Migrate(ctx context.Context) error {
	for _, stmt := range statements(pgRunLogDDL) {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return recordingError("migrate run_log", err)
		}
	}
	return nil
}

func (r *pgRunRepo) Record(ctx context.Context, run entity.RunRecord) error {
	q := insertRunSQL(func(i int) string { return fmt.Sprintf("$%d", i) })
	if _, err := r.pool.Exec(ctx, q, runArgs(run)...); err != nil {
		r.log.Error("run_log insert failed", "run_id", run.ID, "err", err)
		return recordingError("insert run", err)
	}
	r.log.Debug("run_log recorded", "run_id", run.ID, "status", run.Status, "stage", run.Stage)
	return nil
}

func (r *pgRunRepo) ListRecent(ctx context.Context, limit int) ([]entity.RunRecord, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+runColumns+" FROM run_log ORDER BY started_at DESC, id LIMIT $1", limit)
	if err != nil {
		return nil, recordingError("list runs", err)
	}
	defer rows.Close()

	var out []entity.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, recordingError("scan run", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, recordingError("list runs", err)
	}
	return out, nil
}

func (r *pgRunRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, "SELECT status, COUNT(*) FROM run_log GROUP BY status")
	if err != nil {
		return nil, recordingError("count runs", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, recordingError("count runs", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}

// sqlRunRepo stores runs through database/sql; used with the embedded SQLite driver.
type sqlRunRepo struct {
	db  *sql.DB
	log *slog.Logger
}

func NewSQLiteRunRepository(db *sql.DB, log *slog.Logger) RunRepository {
	return &sqlRunRepo{db: db, log: log}
}

func (r *sqlRunRepo) Migrate(ctx context.Context) error {
	for _, stmt := range statements(sqliteRunLogDDL) {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return recordingError("migrate run_log", err)
		}
	}
	return nil
}

func (r *sqlRunRepo) Record(ctx context.Context, run entity.RunRecord) error {
	q := insertRunSQL(func(int) string { return "?" })
	if _, err := r.db.ExecContext(ctx, q, runArgs(run)...); err != nil {
		r.log.Error("run_log insert failed", "run_id", run.ID, "err", err)
		return recordingError("insert run", err)
	}
	r.log.Debug("run_log recorded", "run_id", run.ID, "status", run.Status, "stage", run.Stage)
	return nil
}

func (r *sqlRunRepo) ListRecent(ctx context.Context, limit int) ([]entity.RunRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM run_log ORDER BY started_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, recordingError("list runs", err)
	}
	defer rows.Close()

	var out []entity.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, recordingError("scan run", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, recordingError("list runs", err)
	}
	return out, nil
}

func (r *sqlRunRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM run_log GROUP BY status")
	if err != nil {
		return nil, recordingError("count runs", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, recordingError("count runs", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}

// Window bounds a run listing by start time.
func Window(runs []entity.RunRecord, since time.Time) []entity.RunRecord {
	out := runs[:0:0]
	for _, r := range runs {
		if !r.StartedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out
}

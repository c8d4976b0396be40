package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"finform/internal/core"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so recorded_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRepository persists the analysis journal.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("Journal schema ready", "path", dbPath, "version", version)

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// InsertRecord stores rec. Records are keyed by ID, so a redelivered record
// is ignored; inserted reports whether a row was written.
func (r *SQLiteRepository) InsertRecord(ctx context.Context, rec core.AnalysisRecord) (inserted bool, err error) {
	if rec.ID == "" {
		return false, fmt.Errorf("insert journal record: empty id")
	}
	if !rec.Outcome.Valid() {
		return false, fmt.Errorf("insert journal record %s: unknown outcome %q", rec.ID, rec.Outcome)
	}

	var goal sql.NullBool
	if rec.GoalAlignment != nil {
		goal = sql.NullBool{Bool: *rec.GoalAlignment, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO analysis_journal
			(id, request_id, recorded_at, outcome, rule, income, expense_count, yearly_expenses, goal_alignment, latency_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.RequestID,
		rec.RecordedAt.UTC().Format(timeLayout),
		string(rec.Outcome),
		string(rec.Rule),
		rec.Income.String(),
		rec.ExpenseCount,
		rec.YearlyExpenses.String(),
		goal,
		rec.LatencyMs,
	)
	if err != nil {
		return false, fmt.Errorf("insert journal record %s: %w", rec.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert journal record %s: rows affected: %w", rec.ID, err)
	}
	return n > 0, nil
}

// ListRecent returns up to limit records, newest first.
func (r *SQLiteRepository) ListRecent(ctx context.Context, limit int) ([]core.AnalysisRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, request_id, recorded_at, outcome, rule, income, expense_count, yearly_expenses, goal_alignment, latency_ms
		FROM analysis_journal
		ORDER BY recorded_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list journal records: %w", err)
	}
	defer rows.Close()

	var records []core.AnalysisRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list journal records: %w", err)
	}
	return records, nil
}

// CountByOutcome returns the number of records per outcome.
func (r *SQLiteRepository) CountByOutcome(ctx context.Context) (map[core.Outcome]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM analysis_journal GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("count journal records: %w", err)
	}
	defer rows.Close()

	counts := make(map[core.Outcome]int64)
	for rows.Next() {
		var (
			outcome string
			n       int64
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scan journal count: %w", err)
		}
		counts[core.Outcome(outcome)] = n
	}
	return counts, rows.Err()
}

func scanRecord(rows *sql.Rows) (core.AnalysisRecord, error) {
	var (
		rec                      core.AnalysisRecord
		recordedAt, outcome      string
		rule, income, yearlyText string
		goal                     sql.NullBool
	)
	if err := rows.Scan(&rec.ID, &rec.RequestID, &recordedAt, &outcome, &rule, &income,
		&rec.ExpenseCount, &yearlyText, &goal, &rec.LatencyMs); err != nil {
		return rec, fmt.Errorf("scan journal record: %w", err)
	}

	t, err := time.Parse(timeLayout, recordedAt)
	if err != nil {
		return rec, fmt.Errorf("journal record %s: recorded_at: %w", rec.ID, err)
	}
	rec.RecordedAt = t
	rec.Outcome = core.Outcome(outcome)
	rec.Rule = core.Rule(rule)

	if rec.Income, err = decimal.NewFromString(income); err != nil {
		return rec, fmt.Errorf("journal record %s: income: %w", rec.ID, err)
	}
	if rec.YearlyExpenses, err = decimal.NewFromString(yearlyText); err != nil {
		return rec, fmt.Errorf("journal record %s: yearly_expenses: %w", rec.ID, err)
	}
	if goal.Valid {
		aligned := goal.Bool
		rec.GoalAlignment = &aligned
	}
	return rec, nil
}

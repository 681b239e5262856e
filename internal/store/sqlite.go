package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/conforme/conforme-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS evaluations (
	id             TEXT PRIMARY KEY,
	request_date   DATETIME NOT NULL DEFAULT (datetime('now')),
	username       TEXT NOT NULL,
	item_count     INTEGER NOT NULL,
	overall_result TEXT NOT NULL,
	results        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS id_counter (
	id    INTEGER PRIMARY KEY CHECK (id = 1),
	value INTEGER NOT NULL
);

INSERT OR IGNORE INTO id_counter (id, value) VALUES (1, 0);

CREATE INDEX IF NOT EXISTS idx_evaluations_username ON evaluations(username);
CREATE INDEX IF NOT EXISTS idx_evaluations_request_date ON evaluations(request_date);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GenerateID returns the next sequential evaluation ID (RNF0000001, ...).
func (s *SQLiteStore) GenerateID(ctx context.Context) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: begin id tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE id_counter SET value = value + 1 WHERE id = 1`); err != nil {
		return "", eris.Wrap(err, "sqlite: increment id counter")
	}

	var next int64
	if err := tx.QueryRowContext(ctx, `SELECT value FROM id_counter WHERE id = 1`).Scan(&next); err != nil {
		return "", eris.Wrap(err, "sqlite: read id counter")
	}

	if err := tx.Commit(); err != nil {
		return "", eris.Wrap(err, "sqlite: commit id tx")
	}
	return fmt.Sprintf("RNF%07d", next), nil
}

func (s *SQLiteStore) SaveEvaluation(ctx context.Context, eval Evaluation) error {
	resultsJSON, err := json.Marshal(eval.Results)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal results")
	}

	date := eval.RequestDate
	if date.IsZero() {
		date = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO evaluations (id, request_date, username, item_count, overall_result, results)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		eval.ID, date, eval.Username, eval.ItemCount, string(eval.OverallResult), string(resultsJSON),
	)
	return eris.Wrapf(err, "sqlite: insert evaluation %s", eval.ID)
}

func (s *SQLiteStore) GetEvaluation(ctx context.Context, id string) (*Evaluation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, request_date, username, item_count, overall_result, results
		 FROM evaluations WHERE id = ?`,
		strings.ToUpper(id),
	)

	var e Evaluation
	var result string
	var resultsJSON string
	err := row.Scan(&e.ID, &e.RequestDate, &e.Username, &e.ItemCount, &result, &resultsJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get evaluation %s", id)
	}

	e.OverallResult = model.Verdict(result)
	if err := json.Unmarshal([]byte(resultsJSON), &e.Results); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal results for %s", id)
	}
	return &e, nil
}

func (s *SQLiteStore) ListEvaluations(ctx context.Context, filter Filter) ([]Evaluation, error) {
	query := `SELECT id, request_date, username, item_count, overall_result, results
	          FROM evaluations WHERE 1=1`
	var args []any

	if filter.Username != "" {
		query += ` AND username = ?`
		args = append(args, filter.Username)
	}
	query += ` ORDER BY request_date DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list evaluations")
	}
	defer rows.Close()

	var evals []Evaluation
	for rows.Next() {
		var e Evaluation
		var result string
		var resultsJSON string
		if err := rows.Scan(&e.ID, &e.RequestDate, &e.Username, &e.ItemCount, &result, &resultsJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan evaluation")
		}
		e.OverallResult = model.Verdict(result)
		if err := json.Unmarshal([]byte(resultsJSON), &e.Results); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal results for %s", e.ID)
		}
		evals = append(evals, e)
	}
	return evals, eris.Wrap(rows.Err(), "sqlite: list evaluations iterate")
}

func (s *SQLiteStore) Statistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{
		ByResult: make(map[string]int),
		ByUser:   make(map[string]int),
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(item_count), 0) FROM evaluations`)
	if err := row.Scan(&stats.TotalEvaluations, &stats.TotalItems); err != nil {
		return nil, eris.Wrap(err, "sqlite: stats totals")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT overall_result, COUNT(*) FROM evaluations GROUP BY overall_result`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats by result")
	}
	defer rows.Close()
	for rows.Next() {
		var result string
		var count int
		if err := rows.Scan(&result, &count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result count")
		}
		stats.ByResult[result] = count
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: stats by result iterate")
	}

	userRows, err := s.db.QueryContext(ctx,
		`SELECT username, COUNT(*) FROM evaluations GROUP BY username`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats by user")
	}
	defer userRows.Close()
	for userRows.Next() {
		var user string
		var count int
		if err := userRows.Scan(&user, &count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan user count")
		}
		stats.ByUser[user] = count
	}
	return stats, eris.Wrap(userRows.Err(), "sqlite: stats by user iterate")
}

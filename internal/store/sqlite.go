package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "bess-trader/internal/errors"
	"bess-trader/internal/models"
)

// SQLiteStore implements SessionStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based session store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, apperrors.NewStoreError("open", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, apperrors.NewStoreError("init schema", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Sessions table, one row per pipeline run
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		company_name TEXT NOT NULL,
		price_summary TEXT,
		news_summary TEXT,
		recommendation TEXT,
		started_at DATETIME NOT NULL,
		completed_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_symbol ON sessions(symbol);
	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveSession inserts or replaces a session record.
func (s *SQLiteStore) SaveSession(ctx context.Context, rec *models.SessionRecord) error {
	var completedAt interface{}
	if !rec.CompletedAt.IsZero() {
		completedAt = rec.CompletedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sessions (id, symbol, company_name, price_summary, news_summary, recommendation, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Symbol, rec.CompanyName, rec.PriceSummary, rec.NewsSummary, rec.Recommendation, rec.StartedAt, completedAt)
	if err != nil {
		return apperrors.NewStoreError("save session", err)
	}
	return nil
}

// GetSessions retrieves sessions matching the filter, newest first.
func (s *SQLiteStore) GetSessions(ctx context.Context, filter SessionFilter) ([]models.SessionRecord, error) {
	query := "SELECT id, symbol, company_name, price_summary, news_summary, recommendation, started_at, completed_at FROM sessions WHERE 1=1"
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if !filter.Since.IsZero() {
		query += " AND started_at >= ?"
		args = append(args, filter.Since)
	}

	query += " ORDER BY started_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreError("query sessions", err)
	}
	defer rows.Close()

	var sessions []models.SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, apperrors.NewStoreError("scan session", err)
		}
		sessions = append(sessions, rec)
	}

	return sessions, rows.Err()
}

// GetSessionByID retrieves one session by its ID.
func (s *SQLiteStore) GetSessionByID(ctx context.Context, id string) (*models.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, company_name, price_summary, news_summary, recommendation, started_at, completed_at
		FROM sessions WHERE id = ?
	`, id)

	rec, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.Wrapf(apperrors.ErrSessionNotFound, "id %s", id)
	}
	if err != nil {
		return nil, apperrors.NewStoreError("get session", err)
	}

	return &rec, nil
}

// CountSessions returns the total number of stored sessions.
func (s *SQLiteStore) CountSessions(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&count); err != nil {
		return 0, apperrors.NewStoreError("count sessions", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (models.SessionRecord, error) {
	var rec models.SessionRecord
	var completedAt sql.NullTime

	err := row.Scan(&rec.ID, &rec.Symbol, &rec.CompanyName, &rec.PriceSummary, &rec.NewsSummary, &rec.Recommendation, &rec.StartedAt, &completedAt)
	if err != nil {
		return models.SessionRecord{}, err
	}

	if completedAt.Valid {
		rec.CompletedAt = completedAt.Time
	}
	return rec, nil
}

package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/vekoo-go1/veko-dome-v1/internal/model"
)

// dbFileName is the SQLite file created inside the store directory.
const dbFileName = "vekodome.db"

// DefaultListLimit bounds listing queries when the caller does not pick a
// limit.
const DefaultListLimit = 20

// sqliteTimeFormat is the format used when writing explicit timestamps.
// It matches SQLite's CURRENT_TIMESTAMP output so every row parses the same.
const sqliteTimeFormat = "2006-01-02 15:04:05"

// Store provides SQLite-backed persistence for session trails.
type Store struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance. Recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history store under dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is
// returned.
func Open(dbDir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("history database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; a bigger pool buys contention, not
	// throughput.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path, for logging.
func (s *Store) Path() string {
	return s.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (s *Store) createTables() error {
	schema := `
	-- One row per anonymization session
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		ended_at DATETIME,
		profile TEXT NOT NULL,
		tor_mode TEXT NOT NULL,
		doh INTEGER NOT NULL DEFAULT 0,
		rotate_interval_secs INTEGER NOT NULL,
		pool_size INTEGER NOT NULL,
		pool_fingerprint TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);

	-- Rotation events performed by a session
	CREATE TABLE IF NOT EXISTS rotations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		endpoint TEXT NOT NULL,
		rotated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_rotations_session ON rotations(session_id);

	-- Identity checks; session_id is NULL for one-shot status checks
	CREATE TABLE IF NOT EXISTS identity_checks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER,
		checked_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		public_ip TEXT NOT NULL,
		tor_status TEXT NOT NULL,
		active_endpoint TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_checks_session ON identity_checks(session_id);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// SessionRecord is a stored session row.
type SessionRecord struct {
	ID                 int64
	StartedAt          time.Time
	EndedAt            time.Time // zero while the session is open
	Profile            string
	TorMode            string
	DoH                bool
	RotateIntervalSecs int
	PoolSize           int
	PoolFingerprint    string
}

// RotationRecord is a stored rotation event.
type RotationRecord struct {
	ID        int64
	SessionID int64
	Seq       int
	Endpoint  string
	RotatedAt time.Time
}

// IdentityCheckRecord is a stored identity check. SessionID is zero for
// one-shot checks recorded outside a session.
type IdentityCheckRecord struct {
	ID             int64
	SessionID      int64
	CheckedAt      time.Time
	PublicIP       string
	TorStatus      string
	ActiveEndpoint string
}

// SessionDetail bundles a session with its trails.
type SessionDetail struct {
	Session   SessionRecord
	Rotations []RotationRecord
	Checks    []IdentityCheckRecord
}

// BeginSession inserts a new session row and returns its ID.
// The start timestamp is assigned by the database.
func (s *Store) BeginSession(ctx context.Context, rec *SessionRecord) (int64, error) {
	query := `
	INSERT INTO sessions (profile, tor_mode, doh, rotate_interval_secs, pool_size, pool_fingerprint)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		rec.Profile,
		rec.TorMode,
		rec.DoH,
		rec.RotateIntervalSecs,
		rec.PoolSize,
		rec.PoolFingerprint,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert session: %w", err)
	}

	return result.LastInsertId()
}

// EndSession stamps the session's end time.
func (s *Store) EndSession(ctx context.Context, id int64) error {
	query := `UPDATE sessions SET ended_at = CURRENT_TIMESTAMP WHERE id = ?`

	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

// RecordRotation appends a rotation event to a session's trail. The event's
// own timestamp is stored, not the insert time, so the trail matches what
// the rotator actually did.
func (s *Store) RecordRotation(ctx context.Context, sessionID int64, ev model.RotationEvent) error {
	query := `
	INSERT INTO rotations (session_id, seq, endpoint, rotated_at)
	VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		sessionID,
		ev.Seq,
		ev.Current,
		ev.RotatedAt.UTC().Format(sqliteTimeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to record rotation: %w", err)
	}
	return nil
}

// RecordIdentityCheck stores an identity check result. A zero sessionID
// records a one-shot check with no session attached.
func (s *Store) RecordIdentityCheck(ctx context.Context, sessionID int64, status *model.ConnectionStatus) error {
	checkedAt := status.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = time.Now()
	}

	var sid sql.NullInt64
	if sessionID > 0 {
		sid = sql.NullInt64{Int64: sessionID, Valid: true}
	}

	query := `
	INSERT INTO identity_checks (session_id, checked_at, public_ip, tor_status, active_endpoint)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		sid,
		checkedAt.UTC().Format(sqliteTimeFormat),
		status.PublicIP,
		status.Tor.String(),
		status.ActiveEndpoint,
	)
	if err != nil {
		return fmt.Errorf("failed to record identity check: %w", err)
	}
	return nil
}

// ListSessions returns the most recent sessions, newest first.
// A non-positive limit selects DefaultListLimit.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
	SELECT id, started_at, ended_at, profile, tor_mode, doh, rotate_interval_secs, pool_size, pool_fingerprint
	FROM sessions
	ORDER BY id DESC
	LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var results []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}

	return results, rows.Err()
}

// SessionDetail returns one session with its rotation and identity-check
// trails. Returns nil without error when the session does not exist.
func (s *Store) SessionDetail(ctx context.Context, id int64) (*SessionDetail, error) {
	query := `
	SELECT id, started_at, ended_at, profile, tor_mode, doh, rotate_interval_secs, pool_size, pool_fingerprint
	FROM sessions
	WHERE id = ?
	`

	row := s.db.QueryRowContext(ctx, query, id)
	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	detail := &SessionDetail{Session: rec}

	if detail.Rotations, err = s.sessionRotations(ctx, id); err != nil {
		return nil, err
	}
	if detail.Checks, err = s.sessionChecks(ctx, id); err != nil {
		return nil, err
	}

	return detail, nil
}

// sessionRotations loads a session's rotation trail in event order.
func (s *Store) sessionRotations(ctx context.Context, sessionID int64) ([]RotationRecord, error) {
	query := `
	SELECT id, session_id, seq, endpoint, rotated_at
	FROM rotations
	WHERE session_id = ?
	ORDER BY seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rotations: %w", err)
	}
	defer rows.Close()

	var results []RotationRecord
	for rows.Next() {
		var rec RotationRecord
		var rotatedAt string

		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Seq, &rec.Endpoint, &rotatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rotation: %w", err)
		}
		rec.RotatedAt = parseTimestamp(rotatedAt)
		results = append(results, rec)
	}

	return results, rows.Err()
}

// sessionChecks loads a session's identity checks in check order.
func (s *Store) sessionChecks(ctx context.Context, sessionID int64) ([]IdentityCheckRecord, error) {
	query := `
	SELECT id, session_id, checked_at, public_ip, tor_status, active_endpoint
	FROM identity_checks
	WHERE session_id = ?
	ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query identity checks: %w", err)
	}
	defer rows.Close()

	return scanChecks(rows)
}

// ListStandaloneChecks returns recent one-shot identity checks (those with
// no session), newest first. A non-positive limit selects DefaultListLimit.
func (s *Store) ListStandaloneChecks(ctx context.Context, limit int) ([]IdentityCheckRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
	SELECT id, session_id, checked_at, public_ip, tor_status, active_endpoint
	FROM identity_checks
	WHERE session_id IS NULL
	ORDER BY id DESC
	LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query identity checks: %w", err)
	}
	defer rows.Close()

	return scanChecks(rows)
}

// scanChecks drains identity check rows.
func scanChecks(rows *sql.Rows) ([]IdentityCheckRecord, error) {
	var results []IdentityCheckRecord
	for rows.Next() {
		var rec IdentityCheckRecord
		var sid sql.NullInt64
		var checkedAt string
		var endpoint sql.NullString

		if err := rows.Scan(&rec.ID, &sid, &checkedAt, &rec.PublicIP, &rec.TorStatus, &endpoint); err != nil {
			return nil, fmt.Errorf("failed to scan identity check: %w", err)
		}
		if sid.Valid {
			rec.SessionID = sid.Int64
		}
		rec.CheckedAt = parseTimestamp(checkedAt)
		rec.ActiveEndpoint = endpoint.String
		results = append(results, rec)
	}

	return results, rows.Err()
}

// rowScanner lets scanSession work for both QueryRow and Query results.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSession reads one session row.
func scanSession(row rowScanner) (SessionRecord, error) {
	var rec SessionRecord
	var startedAt string
	var endedAt sql.NullString
	var fingerprint sql.NullString

	err := row.Scan(
		&rec.ID,
		&startedAt,
		&endedAt,
		&rec.Profile,
		&rec.TorMode,
		&rec.DoH,
		&rec.RotateIntervalSecs,
		&rec.PoolSize,
		&fingerprint,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("failed to scan session: %w", err)
	}

	rec.StartedAt = parseTimestamp(startedAt)
	if endedAt.Valid {
		rec.EndedAt = parseTimestamp(endedAt.String)
	}
	rec.PoolFingerprint = fingerprint.String

	return rec, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on
// configuration. If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists the history of one task type in its own SQLite file.
type Store struct {
	db     *sql.DB
	path   string
	layout Layout
	now    func() time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	defaultBusyTimeout      = 30 * time.Second
)

type options struct {
	busyTimeout time.Duration
	now         func() time.Time
}

// Option customizes Open.
type Option func(*options)

// WithBusyTimeout bounds how long a call waits on a lock held by another connection.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

// WithClock overrides the completion time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open creates the history directory if needed, opens the database, and
// upgrades its schema to the current version.
func Open(ctx context.Context, path string, layout Layout, opts ...Option) (*Store, error) {
	ctx = ensureContext(ctx)
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	o := options{busyTimeout: defaultBusyTimeout, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", path, o.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection per process keeps every call a short, serialized
	// statement; busy_timeout covers other processes.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}

	store := &Store{db: db, path: path, layout: layout, now: o.now}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Dir returns the history directory holding the database.
func (s *Store) Dir() string { return filepath.Dir(s.path) }

// Layout returns the table layout the store was opened with.
func (s *Store) Layout() Layout { return s.layout }

// CreatePending inserts a pending record with no timestamp and returns its id.
func (s *Store) CreatePending(ctx context.Context, fields Fields) (int64, error) {
	ctx = ensureContext(ctx)
	for name := range fields {
		if _, ok := s.layout.column(name); !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
	}

	names := make([]string, 0, len(s.layout.Columns))
	args := make([]any, 0, len(s.layout.Columns))
	for _, col := range s.layout.Columns {
		value, err := columnValue(col, fields[col.Name])
		if err != nil {
			return 0, err
		}
		names = append(names, col.Name)
		args = append(args, value)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s, %s, status) VALUES (NULL, %s, ?)",
		s.layout.Table, s.layout.TimestampColumn, strings.Join(names, ", "), placeholders(len(names)))
	args = append(args, string(StatusPending))

	var id int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("insert pending record: %w", err)
	}
	return id, nil
}

// UpdateStatus resolves a pending record. The timestamp is stamped with the
// current time when setTimestamp is true, which must happen exactly when the
// status is completed. Resolved records are never modified again.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status Status, setTimestamp bool) error {
	ctx = ensureContext(ctx)
	if !status.Terminal() {
		return fmt.Errorf("%w: cannot move record %d to %q", ErrInvalidTransition, id, status)
	}
	if setTimestamp != (status == StatusCompleted) {
		return fmt.Errorf("%w: status %s with setTimestamp=%v", ErrTimestampRule, status, setTimestamp)
	}

	var stamp any
	if setTimestamp {
		stamp = s.now().Format(TimestampLayout)
	}
	query := fmt.Sprintf("UPDATE %s SET status = ?, %s = ? WHERE id = ? AND status = ?",
		s.layout.Table, s.layout.TimestampColumn)

	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, query, string(status), stamp, id, string(StatusPending))
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("update record %d: %w", id, err)
	}
	if affected == 1 {
		return nil
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: record %d is already %s", ErrInvalidTransition, id, current.Status)
}

// List returns every record: unresolved timestamps first, then newest first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	ctx = ensureContext(ctx)
	ts := s.layout.TimestampColumn
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY CASE WHEN %s IS NULL OR %s = '' THEN 0 ELSE 1 END, %s DESC, id DESC",
		s.selectColumns(), s.layout.Table, ts, ts, ts)
	return s.queryRecords(ctx, query)
}

// Get returns a single record by id.
func (s *Store) Get(ctx context.Context, id int64) (*Record, error) {
	ctx = ensureContext(ctx)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", s.selectColumns(), s.layout.Table)
	records, err := s.queryRecords(ctx, query, id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: id %d", ErrRecordNotFound, id)
	}
	return &records[0], nil
}

// LatestPending returns the most recently created unresolved record.
func (s *Store) LatestPending(ctx context.Context) (*Record, error) {
	ctx = ensureContext(ctx)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE status = ? ORDER BY id DESC LIMIT 1", s.selectColumns(), s.layout.Table)
	records, err := s.queryRecords(ctx, query, string(StatusPending))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no pending record", ErrRecordNotFound)
	}
	return &records[0], nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM "+s.layout.Table).Scan(&count); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

// CountByStatus returns record counts keyed by status.
func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT status, COUNT(1) FROM %s GROUP BY status", s.layout.Table))
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int, len(allStatuses))
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[Status(status)] = count
	}
	return counts, rows.Err()
}

func (s *Store) selectColumns() string {
	cols := []string{"id", s.layout.TimestampColumn}
	for _, col := range s.layout.Columns {
		cols = append(cols, col.Name)
	}
	return strings.Join(append(cols, "status"), ", ")
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := s.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return records, nil
}

func (s *Store) scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		id     int64
		rawTS  sql.NullString
		status sql.NullString
	)
	values := make([]sql.NullString, len(s.layout.Columns))
	dest := make([]any, 0, len(values)+3)
	dest = append(dest, &id, &rawTS)
	for i := range values {
		dest = append(dest, &values[i])
	}
	dest = append(dest, &status)

	if err := scanner.Scan(dest...); err != nil {
		return Record{}, fmt.Errorf("scan record: %w", err)
	}

	record := Record{
		ID:           id,
		RawTimestamp: rawTS.String,
		Status:       Status(status.String),
		Fields:       make(Fields, len(values)),
	}
	if ts, err := parseTimestamp(rawTS.String); err == nil {
		record.Timestamp = ts
	}
	for i, col := range s.layout.Columns {
		record.Fields[col.Name] = values[i].String
	}
	return record, nil
}

func columnValue(col Column, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if col.Kind != KindInteger {
		return raw, nil
	}
	if raw == "" {
		return int64(0), nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("field %s: %q is not an integer", col.Name, raw)
	}
	return n, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "?"
	}
	return strings.Join(parts, ", ")
}

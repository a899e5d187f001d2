package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// schemaVersion is the target schema. Version 1 is a history table without a
// status column; every database is upgraded to version 2 on open.
const schemaVersion = 2

type tableColumn struct {
	name    string
	notNull bool
}

func (s *Store) initSchema(ctx context.Context) error {
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		version, err := s.detectVersion(ctx, tx)
		if err != nil {
			return err
		}
		switch {
		case version > schemaVersion:
			return fmt.Errorf("%w: %s has version %d, expected %d", ErrSchemaMismatch, s.path, version, schemaVersion)
		case version == schemaVersion:
			return nil
		case version == 0:
			if err := s.createTable(ctx, tx, s.layout.Table); err != nil {
				return err
			}
		default:
			if err := s.upgradeFromV1(ctx, tx); err != nil {
				return err
			}
		}
		if err := s.createIndex(ctx, tx); err != nil {
			return err
		}
		if err := recordVersion(ctx, tx, schemaVersion); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit schema: %w", err)
		}
		return nil
	})
}

// detectVersion returns 0 for an empty database, 1 for a legacy history
// table without version bookkeeping, or the recorded version.
func (s *Store) detectVersion(ctx context.Context, tx *sql.Tx) (int, error) {
	hasVersionTable, err := tableExists(ctx, tx, "schema_version")
	if err != nil {
		return 0, err
	}
	if hasVersionTable {
		var version int
		err := tx.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
		if err == nil {
			return version, nil
		}
		if err != sql.ErrNoRows {
			return 0, fmt.Errorf("read schema version: %w", err)
		}
	}
	hasTable, err := tableExists(ctx, tx, s.layout.Table)
	if err != nil {
		return 0, err
	}
	if hasTable {
		return 1, nil
	}
	return 0, nil
}

func (s *Store) upgradeFromV1(ctx context.Context, tx *sql.Tx) error {
	columns, err := tableColumns(ctx, tx, s.layout.Table)
	if err != nil {
		return err
	}
	byName := make(map[string]tableColumn, len(columns))
	for _, col := range columns {
		byName[col.name] = col
	}
	_, hasStatus := byName["status"]
	_, hasFilterFlag := byName["filter_completed"]

	// A NOT NULL timestamp cannot hold pending rows; SQLite cannot relax the
	// constraint in place, so the table is rebuilt.
	if ts, ok := byName[s.layout.TimestampColumn]; ok && ts.notNull {
		if err := s.rebuildTable(ctx, tx, byName, hasStatus, hasFilterFlag); err != nil {
			return err
		}
		return s.stampCompleted(ctx, tx)
	}

	if _, ok := byName[s.layout.TimestampColumn]; !ok {
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT", s.layout.Table, s.layout.TimestampColumn)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add timestamp column: %w", err)
		}
	}
	for _, col := range s.layout.Columns {
		if _, ok := byName[col.Name]; ok {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", s.layout.Table, columnDefinition(col))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s: %w", col.Name, err)
		}
	}
	if hasStatus {
		return s.stampCompleted(ctx, tx)
	}
	addStatus := fmt.Sprintf("ALTER TABLE %s ADD COLUMN status TEXT NOT NULL DEFAULT 'pending'", s.layout.Table)
	if _, err := tx.ExecContext(ctx, addStatus); err != nil {
		return fmt.Errorf("add status column: %w", err)
	}
	// Rows written before status tracking existed are assumed to have succeeded,
	// except where an older filter_completed flag says otherwise.
	backfill := fmt.Sprintf("UPDATE %s SET status = 'completed'", s.layout.Table)
	if hasFilterFlag {
		backfill = fmt.Sprintf(
			"UPDATE %s SET status = CASE WHEN filter_completed = 1 THEN 'completed' ELSE 'pending' END",
			s.layout.Table)
	}
	if _, err := tx.ExecContext(ctx, backfill); err != nil {
		return fmt.Errorf("backfill status: %w", err)
	}
	clearStamps := fmt.Sprintf("UPDATE %s SET %s = NULL WHERE status = 'pending'", s.layout.Table, s.layout.TimestampColumn)
	if _, err := tx.ExecContext(ctx, clearStamps); err != nil {
		return fmt.Errorf("clear pending timestamps: %w", err)
	}
	return s.stampCompleted(ctx, tx)
}

// stampCompleted gives completed rows that have no timestamp the upgrade
// time, so a completed row always carries one.
func (s *Store) stampCompleted(ctx context.Context, tx *sql.Tx) error {
	ts := s.layout.TimestampColumn
	stmt := fmt.Sprintf("UPDATE %s SET %s = ? WHERE status = 'completed' AND (%s IS NULL OR %s = '')",
		s.layout.Table, ts, ts, ts)
	if _, err := tx.ExecContext(ctx, stmt, s.now().Format(TimestampLayout)); err != nil {
		return fmt.Errorf("stamp completed rows: %w", err)
	}
	return nil
}

func (s *Store) rebuildTable(ctx context.Context, tx *sql.Tx, existing map[string]tableColumn, hasStatus, hasFilterFlag bool) error {
	staging := s.layout.Table + "_v2"
	if err := s.createTable(ctx, tx, staging); err != nil {
		return err
	}

	status := "'completed'"
	switch {
	case hasStatus:
		status = "COALESCE(status, 'completed')"
	case hasFilterFlag:
		status = "CASE WHEN filter_completed = 1 THEN 'completed' ELSE 'pending' END"
	}
	stamp := s.layout.TimestampColumn
	if !hasStatus && hasFilterFlag {
		stamp = fmt.Sprintf("CASE WHEN filter_completed = 1 THEN %s ELSE NULL END", s.layout.TimestampColumn)
	}

	targets := []string{"id", s.layout.TimestampColumn}
	sources := []string{"id", stamp}
	for _, col := range s.layout.Columns {
		targets = append(targets, col.Name)
		if _, ok := existing[col.Name]; ok {
			sources = append(sources, fmt.Sprintf("COALESCE(%s, %s)", col.Name, zeroValue(col)))
		} else {
			sources = append(sources, zeroValue(col))
		}
	}
	targets = append(targets, "status")
	sources = append(sources, status)

	copyRows := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
		staging, strings.Join(targets, ", "), strings.Join(sources, ", "), s.layout.Table)
	statements := []string{
		copyRows,
		fmt.Sprintf("DROP TABLE %s", s.layout.Table),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", staging, s.layout.Table),
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("rebuild %s: %w", s.layout.Table, err)
		}
	}
	return nil
}

func (s *Store) createTable(ctx context.Context, tx *sql.Tx, name string) error {
	defs := []string{
		"id INTEGER PRIMARY KEY AUTOINCREMENT",
		s.layout.TimestampColumn + " TEXT",
	}
	for _, col := range s.layout.Columns {
		defs = append(defs, columnDefinition(col))
	}
	defs = append(defs, "status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'completed', 'interrupted', 'failed'))")

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", name, strings.Join(defs, ",\n\t"))
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	return nil
}

func (s *Store) createIndex(ctx context.Context, tx *sql.Tx) error {
	stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)",
		s.layout.Table, s.layout.TimestampColumn, s.layout.Table, s.layout.TimestampColumn)
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create timestamp index: %w", err)
	}
	return nil
}

func recordVersion(ctx context.Context, tx *sql.Tx, version int) error {
	statements := []string{
		"CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)",
		"DELETE FROM schema_version",
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("prepare schema_version: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}

func tableExists(ctx context.Context, tx *sql.Tx, name string) (bool, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return count > 0, nil
}

func tableColumns(ctx context.Context, tx *sql.Tx, table string) ([]tableColumn, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", table, err)
	}
	defer rows.Close()

	var columns []tableColumn
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   sql.NullString
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scan column info: %w", err)
		}
		columns = append(columns, tableColumn{name: name, notNull: notNull != 0})
	}
	return columns, rows.Err()
}

func columnDefinition(col Column) string {
	if col.Kind == KindInteger {
		return col.Name + " INTEGER NOT NULL DEFAULT 0"
	}
	return col.Name + " TEXT NOT NULL DEFAULT ''"
}

func zeroValue(col Column) string {
	if col.Kind == KindInteger {
		return "0"
	}
	return "''"
}

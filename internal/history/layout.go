package history

import (
	"errors"
	"fmt"
	"regexp"
)

// ColumnKind is the SQLite affinity used for a descriptive column.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindInteger
)

// Column declares one descriptive field of a task's history table.
type Column struct {
	Name   string
	Header string
	Kind   ColumnKind
}

// Layout describes the table that holds a task's history. Table and column
// names are interpolated into SQL, so they are restricted to identifiers.
type Layout struct {
	Table           string
	TimestampColumn string
	TimestampHeader string
	Columns         []Column
}

var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Validate checks that every name in the layout is a safe SQL identifier.
func (l Layout) Validate() error {
	if !identifierPattern.MatchString(l.Table) {
		return fmt.Errorf("history layout: invalid table name %q", l.Table)
	}
	if !identifierPattern.MatchString(l.TimestampColumn) {
		return fmt.Errorf("history layout: invalid timestamp column %q", l.TimestampColumn)
	}
	if len(l.Columns) == 0 {
		return errors.New("history layout: at least one descriptive column is required")
	}
	seen := map[string]struct{}{"id": {}, "status": {}, l.TimestampColumn: {}}
	for _, col := range l.Columns {
		if !identifierPattern.MatchString(col.Name) {
			return fmt.Errorf("history layout: invalid column name %q", col.Name)
		}
		if _, dup := seen[col.Name]; dup {
			return fmt.Errorf("history layout: duplicate column %q", col.Name)
		}
		seen[col.Name] = struct{}{}
	}
	return nil
}

// Headers returns display headers: timestamp, descriptive columns, then status.
func (l Layout) Headers() []string {
	headers := make([]string, 0, len(l.Columns)+2)
	headers = append(headers, l.TimestampHeader)
	for _, col := range l.Columns {
		headers = append(headers, col.Header)
	}
	return append(headers, "Status")
}

func (l Layout) column(name string) (Column, bool) {
	for _, col := range l.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// Package report renders task history for operators and exports it as CSV
// that spreadsheet tools open without mangling.
package report

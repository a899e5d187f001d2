// Package main hosts the contentpub CLI entrypoint and command graph.
//
// Commands resolve configuration lazily, build a workflow manager per
// invocation, and pick a prompter: the pterm terminal UI on an interactive
// terminal, flag-driven answers (--yes, --dir, --env) otherwise. History
// reports and diagnostics read the stores directly.
package main

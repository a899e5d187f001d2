// Package preflight checks that the directories, vendor jobs and history
// stores contentpub depends on are in place.
//
// The doctor command runs RunAll and renders the results. Workflows call the
// individual checks (CheckDirectoryAccess, CheckExecutable) before touching
// the server drop or starting a job so the operator gets a precise message
// instead of a half-finished run.
package preflight

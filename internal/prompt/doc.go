// Package prompt is the operator-facing side of the workflows: directory
// selection, yes/no confirmation, environment choice, progress and notices.
//
// Terminal renders with pterm. Scripted answers from preset values and is
// used for non-interactive runs and tests.
package prompt

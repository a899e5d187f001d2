// Package config loads, normalizes, and validates contentpub configuration.
//
// It supplies defaults (XDG data directories for history and logs, the vendor
// installation paths for batch jobs), expands user paths including tilde
// shortcuts, reads TOML files, and honours environment fallbacks such as
// CONTENTPUB_NTFY_TOPIC.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors.
package config

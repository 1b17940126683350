// Package config loads, normalizes, and validates patchtrack configuration
// data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PATCHTRACK_HOST. The Config type centralizes every knob the CLI and watch
// mode need, so the update tree, data directory, and installer hook are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

// Package config loads, normalizes, and validates jobmedia configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the JOBMEDIA_BASE_URL environment
// fallback. The Config type centralizes every knob the CLI and the upload
// pipeline need: where queued images and the queue database live, how to reach
// the remote backend, and how aggressively to retry.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

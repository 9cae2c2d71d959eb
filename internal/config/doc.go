// Package config defines the runtime configuration for seoscan,
// including defaults, validation, and the optional .seoscan YAML file
// with per-site overrides.
package config

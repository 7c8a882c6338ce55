// Package config manages server configuration loaded from a YAML file with
// environment variable overrides. Each attribute tracks its source (default,
// file, or environment) for the `hospitalctl configuration show` command.
package config

// Package settings persists device configuration.
//
// Plain values live in a YAML file under the XDG config
// home. Secrets (tokens and client secrets) are routed
// to the OS keyring when one is available. Process-level
// options come from GITLINK_ environment variables.
package settings

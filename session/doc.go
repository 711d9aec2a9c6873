// Package session selects a git hosting backend by kind and holds the one
// provider the device currently drives.
package session

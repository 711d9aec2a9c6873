// Package digester computes git blob object ids for
// local content so callers can tell whether a remote
// file already holds the same bytes without fetching it
// again.
package digester

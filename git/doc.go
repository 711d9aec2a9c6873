// Package git defines the contract every git hosting backend satisfies
// and the normalized records they all return.
//
// Provider is composed of smaller service interfaces (repositories,
// issues, triage, files, users) plus the authentication lifecycle and
// error introspection. Implementations live in the github, gitlab and
// gitee sub-packages. State carries the per-instance credential, the
// last error and response code, and the lock that keeps at most one
// request in flight per provider.
//
// Prober and ProberFunc let the OAuth engine verify a freshly issued
// token without knowing which backend it belongs to.
package git

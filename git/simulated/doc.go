// Package simulated implements git.Provider in memory. It accepts one
// fixed token, Token, resolves it to Login and serves repositories,
// issues, comments, labels, milestones and files from process memory
// without any network access.
//
// The device selects it when OAuth simulation is configured, so that a
// portal session can be driven end to end with no backend reachable.
// Not-found answers are reported as *git.APIError with status 404, the
// same way the network backends report them.
package simulated

// Package device is the application controller. It owns
// the provider session, runs the authentication flows
// and implements the operations offered to the user:
// connection test, file push and disconnect.
package device

// Package tokenportal is the manual-token captive
// portal: a client device joins the access point, pastes
// a personal access token into a form and the token is
// handed to the foreground loop once its shape checks
// out.
package tokenportal

// Package oauthflow runs the OAuth2 Authorization-Code
// flow on the device. The flow is served from a captive
// portal: the client device opens /start, is sent to the
// provider to authorize, and lands on /callback where
// the code is exchanged for a token.
//
// Every /start mints a fresh state nonce and PKCE
// verifier. A nonce is consumed by the first callback
// that presents it; any later callback with the same
// nonce is rejected before the token endpoint is
// contacted.
package oauthflow

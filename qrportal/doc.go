// Package qrportal is the QR-assisted secondary portal.
// The device shows a QR code that points a phone at the
// portal; the phone then either signs in through OAuth
// or pastes a token.
package qrportal

// Package captive delivers a captive portal: a soft
// access point, a DNS responder that resolves every name
// to the access point and an HTTP listener that redirects
// OS connectivity probes to the portal index.
//
// The portal variants (manual token, OAuth, QR) supply
// their routes through NewMux and report completion with
// Portal.Complete. The foreground loop reads the single
// Outcome from Portal.Outcome.
package captive

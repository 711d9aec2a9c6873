// Package transport holds the stateless helpers shared by every git
// provider backend: URL construction, percent-encoding, base64 content
// transcoding, and the outbound *http.Client with its fixed user agent,
// fixed timeout and credential-redacting request log.
package transport

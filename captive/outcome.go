package captive

// Outcome is the result of one portal session: a token,
// or the error that ended the attempt.
type Outcome struct {
	Token string
	Err   error
}

package tally

import "errors"

// ErrSubmitInFlight is returned when a submission is attempted while another
// one is still in flight. It is not a success: the caller keeps the modal
// open and does not clear form input.
var ErrSubmitInFlight = errors.New("submission already in flight")

// FetchError is the single failure kind surfaced by the Client. Transport
// failures, 4xx and 5xx responses all collapse into it; what matters to the
// view is the display message, derived from the server's detail field when
// present and a per-action fallback otherwise.
type FetchError struct {
	// Message is the human-readable text shown to the user.
	Message string

	// Status is the HTTP status code, or 0 for transport failures.
	Status int
}

// Error returns the display message.
func (e *FetchError) Error() string {
	return e.Message
}

// fetchErr builds a FetchError from a server detail and a fallback message.
func fetchErr(status int, detail, fallback string) *FetchError {
	msg := detail
	if msg == "" {
		msg = fallback
	}
	return &FetchError{Message: msg, Status: status}
}

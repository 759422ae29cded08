package kilonova

// Error is returned by typed requests if the API responds with the error envelope,
// or if the request failed on the transport level.
type Error struct {
	Message    string
	StatusCode int
}

// Error returns the message sent by the API.
func (e *Error) Error() string {
	return e.Message
}

// IsTransport returns true if the error does not come from the API.
func (e *Error) IsTransport() bool {
	return e.StatusCode == TransportErrorCode
}

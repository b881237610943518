package socketio

// SocketIOError is the single fault kind produced by this package (spec
// §7). It carries a human-readable message and, where the fault was
// provoked by an underlying error (transport I/O, JSON decode, HTTP), the
// wrapped cause.
type SocketIOError struct {
	Message string
	Cause   error
}

func (e *SocketIOError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *SocketIOError) Unwrap() error {
	return e.Cause
}

func newFault(message string, cause error) *SocketIOError {
	return &SocketIOError{Message: message, Cause: cause}
}

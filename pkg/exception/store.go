package exception

import "errors"

var (
	ErrSchemaMismatch  = errors.New("store: persisted schema version mismatch")
	ErrForwarderClosed = errors.New("store: row forwarder closed")
)

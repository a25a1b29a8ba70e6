package ws

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by Send when the transport is not open
	ErrNotConnected = errors.New("not connected")
	// ErrTransportClosed reports that the peer or the network ended the stream
	ErrTransportClosed = errors.New("transport closed")
)

// TransportError describes a failed transport operation
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

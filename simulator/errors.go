package simulator

import (
	"errors"
	"fmt"
)

var ErrTransport = errors.New("simulator: transport failure")

// TransportError is returned when a request could not be completed: the
// connection failed, the request timed out or the reply body could not be read.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

package assistant

import (
	"errors"
	"fmt"
)

// ErrUnresolvableDate means a reminder was requested but no date pattern
// was recognized. The reminder is not stored; the user is asked to
// clarify.
var ErrUnresolvableDate = errors.New("no recognizable date in reminder")

// TransientError wraps an external capability call (store, embedding,
// completion) that failed even after its retry. It is never fatal to the
// process: callers degrade to an apologetic or empty reply.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

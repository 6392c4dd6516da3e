package statestore

import "fmt"

// CorruptStateError reports a persisted payload that could not be decoded
// into a property bag. It is only returned when WithStrictLoad is set.
type CorruptStateError struct {
	Key   string
	Codec string
	Err   error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("corrupt state %q (%s): %v", e.Key, e.Codec, e.Err)
}

func (e *CorruptStateError) Unwrap() error {
	return e.Err
}

package faults

import "fmt"

// Wrap converts an arbitrary returned or recovered value into a Record.
//
// Values already belonging to the taxonomy are returned as-is. Plain errors
// become the cause of a new record tagged with the supplied default code;
// non-error values are stringified into the message. The original value's
// message is always preserved.
//
// Example:
//
//	defer func() {
//		if v := recover(); v != nil {
//			h.HandleFatal(faults.Wrap(v, faults.CodeUnknown), nil)
//		}
//	}()
func Wrap(value any, code string) *Record {
	if value == nil {
		return New("unknown failure", code, Options{})
	}

	if c, ok := value.(Carrier); ok {
		return c.ErrorRecord()
	}

	if err, ok := value.(error); ok {
		return New(err.Error(), code, Options{Cause: err})
	}

	rec := New(fmt.Sprintf("%v", value), code, Options{})
	rec.AddContext("wrapped_type", fmt.Sprintf("%T", value))
	return rec
}

package util

import (
	"errors"
	"fmt"
)

// PanicToError converts a recovered panic payload into an error for
// logging. A nil payload maps to nil.
func PanicToError(e any) error {
	switch v := e.(type) {
	case nil:
		return nil
	case error:
		return v
	case string:
		return errors.New(v)
	case fmt.Stringer:
		return errors.New(v.String())
	default:
		return fmt.Errorf("panic: %v", v)
	}
}

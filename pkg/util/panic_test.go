package util

import (
	"errors"
	"testing"
)

type stringerPayload struct{}

func (stringerPayload) String() string { return "stringer payload" }

func TestPanicToError(t *testing.T) {
	if PanicToError(nil) != nil {
		t.Fatal("nil payload should map to nil")
	}
	cause := errors.New("boom")
	if PanicToError(cause) != cause {
		t.Fatal("error payload should pass through")
	}
	if got := PanicToError("exploded"); got == nil || got.Error() != "exploded" {
		t.Fatalf("string payload mismatch: %v", got)
	}
	if got := PanicToError(stringerPayload{}); got == nil || got.Error() != "stringer payload" {
		t.Fatalf("stringer payload mismatch: %v", got)
	}
	if got := PanicToError(42); got == nil || got.Error() != "panic: 42" {
		t.Fatalf("default payload mismatch: %v", got)
	}
}

func TestPanicToErrorFromRecover(t *testing.T) {
	var err error
	func() {
		defer func() {
			if e := recover(); e != nil {
				err = PanicToError(e)
			}
		}()
		panic("disposer gone wrong")
	}()
	if err == nil || err.Error() != "disposer gone wrong" {
		t.Fatalf("recovered payload mismatch: %v", err)
	}
}

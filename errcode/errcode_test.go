package errcode

import (
	"errors"
	"testing"
)

func TestOf(t *testing.T) {
	if got := Of(nil); got != OK {
		t.Errorf("Of(nil) = %q, want %q", got, OK)
	}
	if got := Of(Unreadable); got != Unreadable {
		t.Errorf("Of(code) = %q, want %q", got, Unreadable)
	}
	wrapped := &E{C: PersistFailed, Err: errors.New("flash write")}
	if got := Of(wrapped); got != PersistFailed {
		t.Errorf("Of(E) = %q, want %q", got, PersistFailed)
	}
	if got := Of(errors.New("anything")); got != Error {
		t.Errorf("Of(plain) = %q, want %q", got, Error)
	}
}

func TestEUnwrap(t *testing.T) {
	cause := errors.New("flash write")
	e := &E{C: PersistFailed, Msg: "record 1", Err: cause}
	if !errors.Is(e, cause) {
		t.Error("E should unwrap to its cause")
	}
	if e.Error() != "persist_failed: record 1" {
		t.Errorf("Error() = %q", e.Error())
	}
}

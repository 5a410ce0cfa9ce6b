package errcode

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	// Frame-level parsing faults.
	BadHeader        Code = "bad_header"
	Truncated        Code = "truncated"
	ChecksumMismatch Code = "checksum_mismatch"

	// Sensor faults, surfaced after retries are exhausted.
	Unreadable Code = "unreadable"
	BusFault   Code = "bus_fault"

	// State persistence.
	PersistFailed Code = "persist_failed"
	ColdStart     Code = "cold_start"

	Timeout Code = "timeout"
	Error   Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}

package rsp

import "fmt"

// TargetError is returned by Target methods. The core classifies it into one
// of three wire-visible outcomes: Fatal aborts the session, NonFatal/Errno
// are reported as E<hh> and the session continues.
type TargetError interface {
	error
	targetError()
}

// fatalError aborts the session after emitting T06 (SIGABRT) to the client.
type fatalError struct{ err error }

func (e *fatalError) Error() string { return fmt.Sprintf("fatal target error: %v", e.err) }
func (*fatalError) targetError()    {}

// Fatal wraps err as a Fatal target error.
func Fatal(err error) TargetError { return &fatalError{err: err} }

// nonFatalError maps to wire code E79 (121 decimal), the protocol's generic
// non-fatal failure code.
type nonFatalError struct{ err error }

func (e *nonFatalError) Error() string { return fmt.Sprintf("non-fatal target error: %v", e.err) }
func (*nonFatalError) targetError()    {}

// NonFatal wraps err as a non-fatal target error reported as E79.
func NonFatal(err error) TargetError { return &nonFatalError{err: err} }

// errnoError maps to a specific wire error code chosen by the Target.
type errnoError struct{ code uint8 }

func (e *errnoError) Error() string { return fmt.Sprintf("errno %d", e.code) }
func (*errnoError) targetError()    {}

// Errno reports a specific two-hex-digit error code to the client.
func Errno(code uint8) TargetError { return &errnoError{code: code} }

// errCode returns the wire error code (0..255) that err maps to, and whether
// the error is fatal.
func errCode(err TargetError) (code uint8, fatal bool) {
	switch e := err.(type) {
	case *fatalError:
		return 0x06, true
	case *errnoError:
		return e.code, false
	default:
		return 121, false
	}
}

// ConnKind classifies where a ByteConn failure occurred.
type ConnKind int

const (
	// ConnInit indicates a failure during OnSessionStart.
	ConnInit ConnKind = iota
	// ConnRead indicates a failure during Read/Peek.
	ConnRead
	// ConnWrite indicates a failure during Write/WriteAll/Flush.
	ConnWrite
)

// ConnError wraps a ByteConn failure with its classification.
type ConnError struct {
	Kind ConnKind
	Err  error
}

func (e *ConnError) Error() string { return fmt.Sprintf("conn error (%v): %v", e.Kind, e.Err) }
func (e *ConnError) Unwrap() error { return e.Err }

// CapabilityMisuseError is raised when a Target reports a stop reason for a
// capability it never advertised. This is a library-user bug, not a
// transport or protocol condition, and is always fatal.
type CapabilityMisuseError struct {
	Capability string
}

func (e *CapabilityMisuseError) Error() string {
	return fmt.Sprintf("rsp: stop reason requires unadvertised capability %q", e.Capability)
}

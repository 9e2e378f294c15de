package mpt

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Error wraps an error raised by an operation on a trie store, together with
// the frame of the caller that produced it so that `%+v` shows where it
// happened.
type Error struct {
	op    string
	err   error
	frame xerrors.Frame
}

// ErrorOrNil returns nil if err is nil, otherwise err wrapped for the
// operation op with the frame of the caller.
func ErrorOrNil(err error, op string) error {
	return ErrorOrNilSkip(err, op, 1)
}

// ErrorOrNilSkip is like ErrorOrNil but records the frame of the skip-nth
// caller.
func ErrorOrNilSkip(err error, op string, skip int) error {
	if err == nil {
		return nil
	}
	return &Error{
		op:    op,
		err:   err,
		frame: xerrors.Caller(skip),
	}
}

// WrapError attaches the caller frame to err without changing its message.
func WrapError(err error) error {
	return ErrorOrNilSkip(err, "", 2)
}

// Op returns the operation that failed, if one was given.
func (e *Error) Op() string {
	return e.op
}

func (e *Error) Error() string {
	if e.op == "" {
		return fmt.Sprintf("%v", e.err)
	}
	return e.op + ": " + fmt.Sprintf("%v", e.err)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.err
}

// Format implements fmt.Formatter.
func (e *Error) Format(f fmt.State, c rune) {
	xerrors.FormatError(e, f, c)
}

// FormatError implements xerrors.Formatter. The frame and the detail of the
// wrapped error are printed with `%+v`.
func (e *Error) FormatError(p xerrors.Printer) error {
	if e.op == "" {
		p.Printf("%v", e.err)
	} else {
		p.Printf("%s: %v", e.op, e.err)
	}
	if p.Detail() {
		e.frame.Format(p)
		p.Printf("%+v", e.err)
	}
	return nil
}

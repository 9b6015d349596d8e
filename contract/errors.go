package contract

import (
	"errors"
	"fmt"
)

// ErrConfirmationTimeout means no receipt was found within the
// confirmation window. The transaction may still land later; callers
// must treat the outcome as unknown, not as a failure.
var ErrConfirmationTimeout = errors.New("confirmation timed out")

// RPCError wraps a transport or node failure. Retryable.
type RPCError struct {
	Op  string
	Err error
}

func (e *RPCError) Error() string { return fmt.Sprintf("rpc %s: %v", e.Op, e.Err) }
func (e *RPCError) Unwrap() error { return e.Err }

// DecodeError means the contract returned data this client cannot
// decode. Not retryable: it indicates an ABI version mismatch with the
// deployed contract.
type DecodeError struct {
	Method string
	Err    error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.Method, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// SubmissionError means the node or the contract rejected a
// state-changing call (unauthorized, underfunded, reverted). Surfaced
// to the user; not retryable without user action.
type SubmissionError struct {
	Method string
	Err    error
}

func (e *SubmissionError) Error() string { return fmt.Sprintf("submit %s: %v", e.Method, e.Err) }
func (e *SubmissionError) Unwrap() error { return e.Err }

package common

import (
	"errors"
	"fmt"
)

// LocalErrType enumerates the precondition violations detected before
// anything is sent to the network. They are never retried.
type LocalErrType uint32

const (
	// BadChecksum ...
	BadChecksum LocalErrType = iota
	// AlreadyFrozen ...
	AlreadyFrozen
	// NotFrozen ...
	NotFrozen
	// NoNodesSelected ...
	NoNodesSelected
	// NoHealthyNodes ...
	NoHealthyNodes
	// MissingPayer ...
	MissingPayer
	// TooManyChunks ...
	TooManyChunks
	// ChunkOutOfOrder ...
	ChunkOutOfOrder
	// NoOperator ...
	NoOperator
	// MaxQueryPaymentExceeded ...
	MaxQueryPaymentExceeded
	// UnknownKind ...
	UnknownKind
	// InvalidArgument ...
	InvalidArgument
	// AlreadyExecuted ...
	AlreadyExecuted
)

func (t LocalErrType) String() string {
	switch t {
	case BadChecksum:
		return "Bad Checksum"
	case AlreadyFrozen:
		return "Already Frozen"
	case NotFrozen:
		return "Not Frozen"
	case NoNodesSelected:
		return "No Nodes Selected"
	case NoHealthyNodes:
		return "No Healthy Nodes"
	case MissingPayer:
		return "Missing Payer"
	case TooManyChunks:
		return "Too Many Chunks"
	case ChunkOutOfOrder:
		return "Chunk Out Of Order"
	case NoOperator:
		return "No Operator"
	case MaxQueryPaymentExceeded:
		return "Max Query Payment Exceeded"
	case UnknownKind:
		return "Unknown Kind"
	case InvalidArgument:
		return "Invalid Argument"
	case AlreadyExecuted:
		return "Already Executed"
	default:
		return "Unknown"
	}
}

// LocalErr is returned when a request cannot be sent as configured.
type LocalErr struct {
	component string
	errType   LocalErrType
	detail    string
}

// NewLocalErr ...
func NewLocalErr(component string, errType LocalErrType, detail string) LocalErr {
	return LocalErr{
		component: component,
		errType:   errType,
		detail:    detail,
	}
}

// Error ...
func (e LocalErr) Error() string {
	if e.detail == "" {
		return fmt.Sprintf("%s, %s", e.component, e.errType)
	}
	return fmt.Sprintf("%s, %s, %s", e.component, e.detail, e.errType)
}

// Type ...
func (e LocalErr) Type() LocalErrType {
	return e.errType
}

// IsLocal checks that an error is, or wraps, a LocalErr and that its type
// matches the provided one.
func IsLocal(err error, t LocalErrType) bool {
	var localErr LocalErr
	return errors.As(err, &localErr) && localErr.errType == t
}

// IsAnyLocal reports whether err is, or wraps, a LocalErr of any type.
func IsAnyLocal(err error) bool {
	var localErr LocalErr
	return errors.As(err, &localErr)
}

// Package gwerrors implements the gateway's abstract error taxonomy (spec
// §7) as a closed sum type instead of the source's throw-with-structured-
// body style (§9, "Exception-as-control-flow").
package gwerrors

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
)

// Kind enumerates the abstract error kinds from §7. The JSON-RPC code each
// kind maps to lives in codeFor, kept as a single table so the Router's
// error-to-envelope translation is the one place this mapping is read.
type Kind int

const (
	KindGeneric Kind = iota
	KindMalformedRequest
	KindUnknownMethod
	KindInvalidParameter
	KindUnknownSigner
	KindUnsupportedFilter
	KindExecutionError
	KindGasPriceAboveThreshold
	KindGasLimitAboveThreshold
	KindUnpredictableGasPrice
	KindUnpredictableGasLimit
	KindInvalidJSONResponse
	KindInvalidAddress
)

var codeFor = map[Kind]int{
	KindGeneric:                -32099,
	KindMalformedRequest:       -32700,
	KindUnknownMethod:          -32601,
	KindInvalidParameter:       -32602,
	KindUnknownSigner:          -32000,
	KindUnsupportedFilter:      -32500,
	KindExecutionError:         -32015,
	KindGasPriceAboveThreshold: -32099,
	KindGasLimitAboveThreshold: -32099,
	KindUnpredictableGasPrice:  -32099,
	KindUnpredictableGasLimit:  -32099,
	KindInvalidJSONResponse:    -32700,
	KindInvalidAddress:         -32602,
}

var nameFor = map[Kind]string{
	KindGeneric:                "Generic",
	KindMalformedRequest:       "MalformedRequest",
	KindUnknownMethod:          "UnknownMethod",
	KindInvalidParameter:       "InvalidParameter",
	KindUnknownSigner:          "UnknownSigner",
	KindUnsupportedFilter:      "UnsupportedFilter",
	KindExecutionError:         "ExecutionError",
	KindGasPriceAboveThreshold: "GasPriceAboveThreshold",
	KindGasLimitAboveThreshold: "GasLimitAboveThreshold",
	KindUnpredictableGasPrice:  "UnpredictableGasPrice",
	KindUnpredictableGasLimit:  "UnpredictableGasLimit",
	KindInvalidJSONResponse:    "InvalidJsonResponse",
	KindInvalidAddress:         "InvalidAddress",
}

// Error is the gateway's single error type. Every layer maps its native
// errors into this type exactly once, at the boundary where it first
// detects the condition (§9).
type Error struct {
	Kind Kind
	Msg  string
	// Data carries a JSON-marshalable payload for the wire error's "data"
	// field (e.g. the original backend error body). May be nil.
	Data  interface{}
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", nameFor[e.Kind], e.Msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", nameFor[e.Kind], e.Msg)
}

func (e *Error) Unwrap() error { return e.cause }

// Code returns the JSON-RPC error code for e's kind.
func (e *Error) Code() int { return codeFor[e.Kind] }

// New constructs a *Error with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap constructs a *Error that preserves cause in its chain, using
// cosmossdk.io/errors' Wrap semantics so %w-style unwrapping keeps working
// through the boundary.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Kind: kind, Msg: msg, cause: errorsmod.Wrap(cause, msg)}
}

// WithData attaches a data payload and returns e for chaining.
func (e *Error) WithData(data interface{}) *Error {
	e.Data = data
	return e
}

// As reports whether err is (or wraps) a *Error, mirroring errors.As.
func As(err error) (*Error, bool) {
	var ge *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			ge = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if ge == nil {
		return nil, false
	}
	return ge, true
}

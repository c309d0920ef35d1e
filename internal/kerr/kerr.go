// Package kerr defines the error kinds the cryptanalytic core returns.
//
// Core functions never log or exit; they surface one of these kinds to
// the caller, which is free to turn it into a diagnostic reply. A kind
// is attached with New or Wrap and recovered with Of.
package kerr

import (
	"errors"
	"fmt"
)

// Kind classifies why a core operation failed.
type Kind int

const (
	// Other is the kind for errors not classified below (I/O errors
	// that aren't TransportError, etc).
	Other Kind = iota
	// Domain marks a mathematical precondition violation: inverse of
	// zero, divmod by the zero polynomial, sqrt of a non-square.
	Domain
	// Encoding marks invalid base64 or a block of the wrong length.
	Encoding
	// NoSolution marks an attack that found no candidate answer.
	NoSolution
	// Ambiguous marks an attack that found more than one candidate
	// where the inputs should have pinned down exactly one.
	Ambiguous
	// Transport marks a network I/O failure in the padding-oracle
	// client.
	Transport
	// OracleProtocol marks a server response that violates the
	// padding-oracle wire protocol.
	OracleProtocol
)

func (k Kind) String() string {
	switch k {
	case Domain:
		return "DomainError"
	case Encoding:
		return "EncodingError"
	case NoSolution:
		return "NoSolution"
	case Ambiguous:
		return "Ambiguous"
	case Transport:
		return "TransportError"
	case OracleProtocol:
		return "OracleProtocolError"
	default:
		return "Error"
	}
}

// kindError pairs a Kind with an underlying error.
type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string {
	return fmt.Sprintf("%s: %s", e.kind, e.err)
}

func (e *kindError) Unwrap() error {
	return e.err
}

// New returns an error of the given kind with the given message.
func New(kind Kind, format string, args ...any) error {
	return &kindError{kind: kind, err: fmt.Errorf(format, args...)}
}

// Wrap attaches kind to err. If err is already classified, it is
// returned unchanged so the inner kind is preserved. Wrap(kind, nil)
// is nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var ke *kindError
	if errors.As(err, &ke) {
		return err
	}
	return &kindError{kind: kind, err: err}
}

// Of reports the Kind attached to err, or Other if none is attached.
func Of(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return Other
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return Of(err) == kind
}

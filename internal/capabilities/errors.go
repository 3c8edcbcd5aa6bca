package capabilities

import "errors"

var (
	// ErrSemantic reports a service kind, version or reference system that
	// cannot be determined or is not supported.
	ErrSemantic = errors.New("semantic error")

	// ErrNotImplemented reports a known service kind whose version has no
	// registered layout.
	ErrNotImplemented = errors.New("not implemented")

	// ErrInvalidValue reports a mutation or serialization that is structurally
	// invalid. The document keeps its previous state.
	ErrInvalidValue = errors.New("invalid value")
)

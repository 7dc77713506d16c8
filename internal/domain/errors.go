package domain

import "errors"

var (
	// ErrDuplicate is returned by the store when an insert hits a unique constraint
	ErrDuplicate = errors.New("duplicate record")

	// ErrUnknownSelector is returned when a raw event carries a selector we do not decode
	ErrUnknownSelector = errors.New("unknown event selector")

	// ErrMalformedEvent is returned when a raw event does not match its expected layout
	ErrMalformedEvent = errors.New("malformed event")

	// ErrInvalidFelt is returned when a value is not a valid felt252
	ErrInvalidFelt = errors.New("invalid felt")

	// ErrNoTokenURI is returned when a collection contract exposes no token URI for a token
	ErrNoTokenURI = errors.New("no token uri")

	// ErrUnsupportedURI is returned when a metadata URI uses a scheme we cannot fetch
	ErrUnsupportedURI = errors.New("unsupported uri scheme")
)

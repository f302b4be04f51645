package auth

import "errors"

var (
	// ErrMalformedToken is returned for tokens that cannot be decoded.
	ErrMalformedToken = errors.New("malformed token")

	// ErrTamperedToken is returned when the signature does not match the
	// claims; altered claims must never verify.
	ErrTamperedToken = errors.New("tampered token")

	// ErrExpiredToken is returned when issued-at + TTL is in the past.
	ErrExpiredToken = errors.New("token expired")

	// ErrUnauthorized is a role denial; it drives a redirect to the
	// unauthorized surface, never a form error.
	ErrUnauthorized = errors.New("permission denied")
)

package csrf

import "errors"

var (
	// ErrRandomSource is returned when a token cannot be generated: the
	// entropy source failed, returned no bytes, or the length is not positive.
	ErrRandomSource = errors.New("csrf: unable to generate random token")

	// ErrMissingTokenAttribute means a Firewall ran without an Issuer in front
	// of it. It is a wiring error, not a request error.
	ErrMissingTokenAttribute = errors.New("csrf: unable to apply firewall, token attribute is missing")
)

package tva

import "errors"

// Sentinel errors for portal fetches, checked with errors.Is.
var (
	// ErrAuth indicates the login sequence was rejected.
	ErrAuth = errors.New("tva: authentication failed")

	// ErrParse indicates the portal HTML did not have the expected shape.
	ErrParse = errors.New("tva: unexpected page structure")
)

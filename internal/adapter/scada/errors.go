package scada

import "errors"

// Sentinel errors for SCADA fetches, checked with errors.Is.
var (
	// ErrAuth indicates the WebForms login was rejected.
	ErrAuth = errors.New("scada: authentication failed")

	// ErrParse indicates the login page lacked the ASP.NET state fields.
	ErrParse = errors.New("scada: unexpected page structure")

	// ErrAPI indicates the JSON API answered with Success=false or an
	// envelope that does not decode.
	ErrAPI = errors.New("scada: api error")
)

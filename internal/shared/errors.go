package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Transport errors
	ErrNetworkFailure = fmt.Errorf("network failure")
	ErrNotFound       = fmt.Errorf("not found")
	ErrServerError    = fmt.Errorf("server error")

	// Navigation errors
	ErrBoundary      = fmt.Errorf("already at collection boundary")
	ErrInFlight      = fmt.Errorf("navigation already in flight")
	ErrStaleResponse = fmt.Errorf("response superseded by a newer request")
	ErrInvalidPage   = fmt.Errorf("invalid page index")
	ErrLastUnknown   = fmt.Errorf("last page is unknown")

	// Input validation errors
	ErrInvalidRange    = fmt.Errorf("invalid export range")
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

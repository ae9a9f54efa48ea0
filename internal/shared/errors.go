package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrNotFound           = fmt.Errorf("record not found")

	// Pipeline errors
	ErrExtraction       = fmt.Errorf("no play data returned by source")
	ErrPrimaryKey       = fmt.Errorf("primary key check violated")
	ErrNullValues       = fmt.Errorf("null values found in batch")
	ErrInvalidTimestamp = fmt.Errorf("played_at outside the current day")

	// Input validation errors
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

package service

import "errors"

var (
	// ErrEmptyCredentials is returned when the email or password is blank.
	ErrEmptyCredentials = errors.New("email and password are required")

	// ErrInvalidEmail is returned when the email does not look like an address.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrNotAuthenticated is returned when an operation needs a token and none is stored.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrAlreadyRunning is returned when starting a loop that is already running.
	ErrAlreadyRunning = errors.New("already running")

	// ErrTripMonitoringDisabled is returned when starting the trip poller while the feature flag is off.
	ErrTripMonitoringDisabled = errors.New("trip monitoring disabled")

	// ErrInvalidLocation is returned for a fix that fails validation.
	ErrInvalidLocation = errors.New("invalid location")
)

// IsValidationError reports whether err was raised before any I/O because the input was rejected.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyCredentials) ||
		errors.Is(err, ErrInvalidEmail) ||
		errors.Is(err, ErrInvalidLocation)
}

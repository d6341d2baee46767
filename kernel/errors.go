package kernel

import "fmt"

// InitializationError is returned when a kernel cannot be compiled: the identifier is unknown or
// the kernel does not declare what the caller asked for.
type InitializationError struct {
	ID     ID
	Reason string
}

func (err InitializationError) Error() string {
	return fmt.Sprintf("cannot initialise kernel %v: %s", err.ID, err.Reason)
}

// ConfigurationError is returned by Run when a launch is rejected. Nothing is queued when it is
// returned, so no buffer has been touched.
type ConfigurationError struct {
	ID     ID
	Reason string
}

func (err ConfigurationError) Error() string {
	return fmt.Sprintf("invalid launch of %v: %s", err.ID, err.Reason)
}

func configErr(id ID, format string, args ...interface{}) error {
	return ConfigurationError{ID: id, Reason: fmt.Sprintf(format, args...)}
}

package gantry

import "errors"

// ErrAlreadySetup is returned by Setup when the singleton context has
// already been created in this process.
var ErrAlreadySetup = errors.New("gantry: runtime already set up")

// CommandLineError is the distinguished fatal configuration error: the
// host's own packaging is broken or it runs in an unsupported environment.
// It is never retried and propagates to the top-level error handler.
type CommandLineError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *CommandLineError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *CommandLineError) Unwrap() error {
	return e.Cause
}

func newCommandLineError(message string, cause error) *CommandLineError {
	return &CommandLineError{Message: message, Cause: cause}
}

package deepseek

import (
	"errors"
	"fmt"
)

var (
	ErrMissingToken      = errors.New("missing token")
	ErrChallengeUnsolved = errors.New("pow challenge unsolved")
	// ErrStreamBroken marks a reply that ended on a transport error.
	ErrStreamBroken = errors.New("reply stream broken")
	// ErrSessionCleanup marks a failed session delete after the reply was read.
	ErrSessionCleanup = errors.New("session cleanup failed")
)

// ConfigError is returned before any network work when the call cannot be
// configured.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ServiceError carries an error reported by the chat service.
type ServiceError struct {
	Op         string
	StatusCode int
	Code       int
	Msg        string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s (status %d, code %d)", e.Op, e.Msg, e.StatusCode, e.Code)
}

// IsServiceError reports whether err came from the service rather than the
// transport or local configuration.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

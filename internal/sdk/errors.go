package sdk

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedOperation is returned for script APIs that have no host equivalent.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrDuplicateID is returned when a list already holds an item with the same id.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrInvalidArgument is returned when a script passes a value of the wrong shape.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ProxyParseError reports a proxy setting that could not be parsed.
type ProxyParseError struct {
	Proxy string
	Err   error
}

func (e *ProxyParseError) Error() string {
	return fmt.Sprintf("failed to parse proxy (%s): %v", e.Proxy, e.Err)
}

func (e *ProxyParseError) Unwrap() error { return e.Err }

// URLParseError reports a URL string that could not be parsed.
type URLParseError struct {
	Raw    string
	Reason string
}

func (e *URLParseError) Error() string {
	return fmt.Sprintf("failed to parse url (%s): %s", e.Raw, e.Reason)
}

// ContractViolationError reports a context or script result of the wrong shape.
type ContractViolationError struct {
	Reason string
	Err    error
}

func (e *ContractViolationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ContractViolationError) Unwrap() error { return e.Err }

// IsContractViolation reports whether err is or wraps a ContractViolationError.
func IsContractViolation(err error) bool {
	var cv *ContractViolationError
	return errors.As(err, &cv)
}

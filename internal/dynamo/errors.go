package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for configuration and persistence.
var (
	// ErrInvalidConfig indicates a configuration value outside its valid range.
	ErrInvalidConfig = errors.New("dynamo: invalid configuration")

	// ErrCorruptStore indicates persisted systems that could not be decoded.
	ErrCorruptStore = errors.New("dynamo: corrupt systems store")

	// ErrNotFound indicates a lookup for a candidate that is not stored.
	ErrNotFound = errors.New("dynamo: candidate not found")

	// ErrUnsupportedLayout indicates a dimensionality that cannot be rendered.
	ErrUnsupportedLayout = errors.New("dynamo: unsupported render layout")
)

// ConfigError names the offending configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidConfig, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// LoadError wraps a decode failure of a persisted file.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrCorruptStore, e.Path, e.Err)
}

func (e *LoadError) Unwrap() []error {
	return []error{ErrCorruptStore, e.Err}
}

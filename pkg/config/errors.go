package config

import "errors"

// Sentinel errors for configuration access.
var (
	// ErrKeyNotFound is returned when a setting does not exist.
	ErrKeyNotFound = errors.New("config: key not found")

	// ErrTypeMismatch is returned when a setting holds a value of another type.
	ErrTypeMismatch = errors.New("config: type mismatch")

	// ErrEnvVarNotSet is returned by FromEnvVar when the variable is empty.
	ErrEnvVarNotSet = errors.New("config: environment variable is not set")

	// ErrUnknownFormat is returned when no parser matches a file extension.
	ErrUnknownFormat = errors.New("config: unknown file format")

	// ErrInvalid is returned by Bind when validation fails.
	ErrInvalid = errors.New("config: invalid configuration")
)

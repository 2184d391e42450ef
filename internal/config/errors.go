package config

import "errors"

var (
	// ErrConfigInvalid indicates a config file that parsed but failed
	// validation.
	ErrConfigInvalid = errors.New("invalid config")

	// ErrConfigFileNotFound indicates an explicitly requested config file is
	// missing.
	ErrConfigFileNotFound = errors.New("config file not found")

	// ErrConfigFileRead indicates an explicitly requested config file exists
	// but cannot be read.
	ErrConfigFileRead = errors.New("cannot read config file")

	// ErrDirEmpty indicates a directory setting explicitly set to "".
	ErrDirEmpty = errors.New("directory setting must not be empty")
)

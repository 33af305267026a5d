package connect

import (
	"errors"
	"fmt"
	"strings"
)

// ErrProbeFailed reports that a connection opened but could not run the
// dialect's probe query.
var ErrProbeFailed = errors.New("database connection test failed")

// ErrDatabaseNotFound reports a missing file database on an open that may
// not create it.
var ErrDatabaseNotFound = errors.New("database does not exist")

// ConfigError lists every missing or malformed connection setting.
type ConfigError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "Missing required environment variables: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "Invalid environment variables: "+strings.Join(e.Invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

// ConnectionError wraps a failure to reach the destination.
type ConnectionError struct {
	Op  string // connect, create_database, probe
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection %s failed: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

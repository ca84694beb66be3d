// Package keyring keeps the PostgreSQL connection string in the OS credential store.
package keyring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/calgrid/internal/constants"
)

var (
	// ErrNotFound is returned when no connection string is stored.
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrUnavailable is returned when the OS keyring cannot be reached.
	ErrUnavailable = errors.New("OS keyring is not available")
)

// Entry addresses one secret in the keyring.
type Entry struct {
	Service string
	User    string
}

// Default is the entry holding the calendar database connection string.
var Default = Entry{Service: constants.AppName, User: constants.DefaultKeyringUser}

// Get returns the stored secret.
func (e Entry) Get() (string, error) {
	secret, err := keyring.Get(e.Service, e.User)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return secret, nil
}

// Set stores secret, replacing any previous value.
func (e Entry) Set(secret string) error {
	if strings.TrimSpace(secret) == "" {
		return errors.New("connection string cannot be empty")
	}
	if err := keyring.Set(e.Service, e.User, secret); err != nil {
		return fmt.Errorf("failed to store credentials in keyring: %w", err)
	}
	return nil
}

// Delete removes the stored secret.
func (e Entry) Delete() error {
	if err := keyring.Delete(e.Service, e.User); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete credentials from keyring: %w", err)
	}
	return nil
}

// Status describes the keyring for diagnostics.
type Status struct {
	Available bool
	Stored    bool
}

// Probe reports whether the keyring answers and whether e holds a value. It never
// returns the secret.
func (e Entry) Probe() Status {
	_, err := e.Get()
	switch {
	case err == nil:
		return Status{Available: true, Stored: true}
	case errors.Is(err, ErrNotFound):
		return Status{Available: true}
	default:
		return Status{}
	}
}

// GetConnectionString reads the default entry.
func GetConnectionString() (string, error) {
	return Default.Get()
}

// SetConnectionString writes the default entry.
func SetConnectionString(connStr string) error {
	return Default.Set(connStr)
}

// DeleteConnectionString removes the default entry.
func DeleteConnectionString() error {
	return Default.Delete()
}

// IsAvailable reports whether the OS keyring can be used.
func IsAvailable() bool {
	return Default.Probe().Available
}

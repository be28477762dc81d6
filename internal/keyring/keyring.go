package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/habitbell/internal/constants"
)

var (
	// ErrNotFound is returned when no secret is stored under the account
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

func get(account string) (string, error) {
	value, err := keyring.Get(constants.AppName, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return value, nil
}

func set(account, what, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", what)
	}
	if err := keyring.Set(constants.AppName, account, value); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", what, err)
	}
	return nil
}

func remove(account, what string) error {
	if err := keyring.Delete(constants.AppName, account); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", what, err)
	}
	return nil
}

// GetConnectionString retrieves the database connection string.
func GetConnectionString() (string, error) {
	return get(constants.DefaultKeyringUser)
}

func SetConnectionString(connStr string) error {
	return set(constants.DefaultKeyringUser, "connection string", connStr)
}

func DeleteConnectionString() error {
	return remove(constants.DefaultKeyringUser, "connection string")
}

// GetDispatchSecret retrieves the shared secret sent with webhook reminders.
func GetDispatchSecret() (string, error) {
	return get(constants.SecretKeyringUser)
}

func SetDispatchSecret(secret string) error {
	return set(constants.SecretKeyringUser, "dispatch secret", secret)
}

func DeleteDispatchSecret() error {
	return remove(constants.SecretKeyringUser, "dispatch secret")
}

// IsAvailable is a best-effort check that the OS keyring answers.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}

// Package credential stores the IMAP password in the system keyring.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "newsfold"

// ErrNotFound is returned when no password is stored for an account.
var ErrNotFound = errors.New("credential not found")

// Store reads and writes IMAP passwords keyed by account.
type Store struct {
	ring keyring.Keyring
}

// Open returns a Store backed by the first available system keyring,
// falling back to an encrypted file under ~/.config/newsfold.
func Open() (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/newsfold/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("newsfold-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Store{ring: ring}, nil
}

// NewStore wraps an existing keyring.
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Key is the keyring item name for an IMAP account.
func Key(host, username string) string {
	return "imap:" + username + "@" + host
}

// Password returns the stored password for the account.
func (s *Store) Password(host, username string) (string, error) {
	item, err := s.ring.Get(Key(host, username))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting credential for %s: %w", username, err)
	}
	return string(item.Data), nil
}

// SetPassword stores the password for the account.
func (s *Store) SetPassword(host, username, password string) error {
	err := s.ring.Set(keyring.Item{
		Key:         Key(host, username),
		Data:        []byte(password),
		Label:       "newsfold IMAP password",
		Description: "IMAP password for " + username,
	})
	if err != nil {
		return fmt.Errorf("setting credential for %s: %w", username, err)
	}
	return nil
}

// DeletePassword removes the stored password.
func (s *Store) DeletePassword(host, username string) error {
	if err := s.ring.Remove(Key(host, username)); err != nil {
		return fmt.Errorf("deleting credential for %s: %w", username, err)
	}
	return nil
}

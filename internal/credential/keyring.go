package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "tempinbox"

// Keys under which secrets are stored.
const (
	KeyAPIToken     = "api-token"
	KeyIMAPPassword = "imap-archive"
)

// envAPIToken overrides the stored token when set.
const envAPIToken = "TEMPINBOX_API_TOKEN"

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/tempinbox/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("tempinbox-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// get is swapped out in tests.
var get = Get

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Label: "tempinbox " + key,
		Data:  []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// IsNotFound reports whether err means the key was never stored.
func IsNotFound(err error) bool {
	return errors.Is(err, keyring.ErrKeyNotFound)
}

// APIToken returns the backend bearer token. The environment wins over the
// keyring; a token that was never stored is not an error.
func APIToken() (string, error) {
	if v := strings.TrimSpace(os.Getenv(envAPIToken)); v != "" {
		return v, nil
	}
	token, err := get(KeyAPIToken)
	if IsNotFound(err) {
		return "", nil
	}
	return token, err
}

// IMAPPassword returns the archive mailbox password.
func IMAPPassword() (string, error) {
	return Get(KeyIMAPPassword)
}

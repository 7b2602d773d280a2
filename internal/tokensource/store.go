package tokensource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"
)

// ErrReadOnly is returned when writing to a store that cannot be modified.
var ErrReadOnly = errors.New("credential store is read-only")

// Store persists a single credential. Read returns an empty string when
// nothing is stored. Writing an empty string clears the credential.
type Store interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, credential string) error
}

// EnvStore reads the credential from an environment variable.
type EnvStore struct {
	name string
}

// Compile-time check to ensure EnvStore implements Store
var _ Store = (*EnvStore)(nil)

// NewEnvStore returns a store backed by the environment variable name.
func NewEnvStore(name string) *EnvStore {
	return &EnvStore{name: name}
}

// Read implements Store.
func (s *EnvStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.TrimSpace(os.Getenv(s.name)), nil
}

// Write implements Store. Environment variables cannot be written.
func (s *EnvStore) Write(context.Context, string) error {
	return fmt.Errorf("env %s: %w", s.name, ErrReadOnly)
}

// FileStore keeps the credential in a file with 0600 permissions.
type FileStore struct {
	path string
}

// Compile-time check to ensure FileStore implements Store
var _ Store = (*FileStore)(nil)

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Read implements Store. A missing file reads as empty.
func (s *FileStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read credential file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Write implements Store. Writing an empty credential removes the file.
func (s *FileStore) Write(ctx context.Context, credential string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if credential == "" {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove credential file: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(credential), 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(s.path, 0o600); err != nil {
		return fmt.Errorf("restrict credential file: %w", err)
	}
	return nil
}

// KeyringStore keeps the credential in the OS keyring.
type KeyringStore struct {
	service string
	user    string
}

// Compile-time check to ensure KeyringStore implements Store
var _ Store = (*KeyringStore)(nil)

// NewKeyringStore returns a store for the keyring entry service/user.
func NewKeyringStore(service, user string) *KeyringStore {
	return &KeyringStore{service: service, user: user}
}

// Read implements Store. A missing entry reads as empty.
func (s *KeyringStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	secret, err := keyring.Get(s.service, s.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read keyring entry: %w", err)
	}
	return secret, nil
}

// Write implements Store. Writing an empty credential deletes the entry.
func (s *KeyringStore) Write(ctx context.Context, credential string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if credential == "" {
		if err := keyring.Delete(s.service, s.user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("delete keyring entry: %w", err)
		}
		return nil
	}

	if err := keyring.Set(s.service, s.user, credential); err != nil {
		return fmt.Errorf("write keyring entry: %w", err)
	}
	return nil
}

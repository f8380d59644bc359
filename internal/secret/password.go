// Package secret keeps the restic repository password encrypted at rest.
//
// The password file is age-encrypted to an X25519 identity stored next to it.
// The identity is created on first Setup and reused afterwards, so rotating
// the password never invalidates the key.
package secret

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
)

// PasswordStore reads and writes the repository password.
type PasswordStore struct {
	passwordFile string
	identityFile string
}

// NewPasswordStore creates a store over the given files. Neither has to exist yet.
func NewPasswordStore(passwordFile, identityFile string) *PasswordStore {
	return &PasswordStore{
		passwordFile: passwordFile,
		identityFile: identityFile,
	}
}

// Setup encrypts password to the store's identity, generating the identity
// first if there is none.
func (s *PasswordStore) Setup(password string) error {
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}

	identity, err := s.loadOrCreateIdentity()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, identity.Recipient())
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, password); err != nil {
		return fmt.Errorf("writing encrypted password: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing encrypted password: %w", err)
	}

	if err := writeFileAtomic(s.passwordFile, buf.Bytes()); err != nil {
		return fmt.Errorf("writing password file: %w", err)
	}
	return nil
}

// Password decrypts and returns the stored password.
func (s *PasswordStore) Password() (string, error) {
	identity, err := s.loadIdentity()
	if err != nil {
		return "", err
	}

	f, err := os.Open(s.passwordFile)
	if err != nil {
		return "", fmt.Errorf("opening password file: %w", err)
	}
	defer f.Close()

	r, err := age.Decrypt(f, identity)
	if err != nil {
		return "", fmt.Errorf("decrypting password file: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading decrypted password: %w", err)
	}
	return string(data), nil
}

// IsConfigured returns true if both the identity and the password file exist.
func (s *PasswordStore) IsConfigured() bool {
	if _, err := os.Stat(s.identityFile); err != nil {
		return false
	}
	if _, err := os.Stat(s.passwordFile); err != nil {
		return false
	}
	return true
}

func (s *PasswordStore) loadOrCreateIdentity() (*age.X25519Identity, error) {
	if _, err := os.Stat(s.identityFile); err == nil {
		return s.loadIdentity()
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("checking identity file: %w", err)
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating identity: %w", err)
	}

	content := fmt.Sprintf("# public key: %s\n%s\n", identity.Recipient(), identity)
	if err := writeFileAtomic(s.identityFile, []byte(content)); err != nil {
		return nil, fmt.Errorf("writing identity file: %w", err)
	}
	return identity, nil
}

func (s *PasswordStore) loadIdentity() (*age.X25519Identity, error) {
	data, err := os.ReadFile(s.identityFile)
	if err != nil {
		return nil, fmt.Errorf("reading identity file: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		identity, err := age.ParseX25519Identity(line)
		if err != nil {
			return nil, fmt.Errorf("parsing identity: %w", err)
		}
		return identity, nil
	}
	return nil, fmt.Errorf("no identity found in %s", s.identityFile)
}

// writeFileAtomic writes data with mode 0600 via a temp file and rename.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}

// StaticPassword is a password held in memory, e.g. taken from the environment.
type StaticPassword string

func (p StaticPassword) Password() (string, error) {
	if p == "" {
		return "", fmt.Errorf("password is empty")
	}
	return string(p), nil
}

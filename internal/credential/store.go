// Package credential stores the transcription API key shared by the setup
// command (writer) and the dictation daemon (reader).
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Key is the fixed name the API key is stored under, both in the
// credentials file and in the process environment.
const Key = "GROQ_API_KEY"

// Store reads and writes Key in a dotenv file.
type Store struct {
	Path string
	// Getenv is consulted before the file; nil uses os.Getenv.
	Getenv func(string) string
}

// DefaultPath resolves $XDG_CONFIG_HOME/murmur/credentials.env, falling
// back to ~/.config/murmur/credentials.env.
func DefaultPath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "murmur", "credentials.env"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for credential store")
	}
	return filepath.Join(home, ".config", "murmur", "credentials.env"), nil
}

// Open returns a Store at path, or at DefaultPath when path is empty.
func Open(path string) (Store, error) {
	if strings.TrimSpace(path) != "" {
		return Store{Path: path}, nil
	}
	resolved, err := DefaultPath()
	if err != nil {
		return Store{}, err
	}
	return Store{Path: resolved}, nil
}

// Lookup returns the stored key. A missing file yields "" without error.
func (s Store) Lookup() (string, error) {
	getenv := s.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if value := strings.TrimSpace(getenv(Key)); value != "" {
		return value, nil
	}

	values, err := godotenv.Read(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read credential store %q: %w", s.Path, err)
	}
	return strings.TrimSpace(values[Key]), nil
}

// Save writes value under Key, keeping any other entries in the file.
func (s Store) Save(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return errors.New("credential must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}

	values, err := godotenv.Read(s.Path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read credential store %q: %w", s.Path, err)
		}
		values = map[string]string{}
	}
	values[Key] = value

	// godotenv.Write truncates in place, so create with restrictive mode first.
	file, err := os.OpenFile(s.Path, os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open credential store %q: %w", s.Path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close credential store %q: %w", s.Path, err)
	}
	if err := godotenv.Write(values, s.Path); err != nil {
		return fmt.Errorf("write credential store %q: %w", s.Path, err)
	}
	if err := os.Chmod(s.Path, 0o600); err != nil {
		return fmt.Errorf("chmod credential store %q: %w", s.Path, err)
	}
	return nil
}

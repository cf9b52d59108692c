package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded is a resolved configuration together with where it came from.
type Loaded struct {
	Path     string
	Exists   bool
	Config   Config
	Warnings []Warning
}

// Load reads the config at explicitPath, or the default location when empty.
// A missing file is not an error: defaults are returned with a warning.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}
	loaded := Loaded{Path: path, Config: Default()}

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		loaded.Warnings = append(loaded.Warnings, Warning{
			Message: fmt.Sprintf("no config at %s; running with defaults", path),
		})
		return loaded, nil
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	loaded.Exists = true
	loaded.Config, loaded.Warnings, err = Parse(string(content), loaded.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	return loaded, nil
}

package session

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rbright/murmur/internal/audio"
)

// dumpArtifact copies artifact into dir under its own name.
func dumpArtifact(dir string, artifact audio.Artifact) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create debug dir: %w", err)
	}

	src, err := os.Open(artifact.Path)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer src.Close()

	path := filepath.Join(dir, artifact.Name)
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create debug file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("copy artifact: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close debug file: %w", err)
	}
	return path, nil
}

package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
)

// Fixed artifact format: linear PCM, 16 kHz, mono, 16-bit signed little-endian.
const (
	SampleRate     = 16000
	Channels       = 1
	BitDepth       = 16
	bytesPerSample = BitDepth / 8

	artifactPrefix = "murmur-"
	artifactExt    = ".wav"
	wavFormatPCM   = 1
)

// Artifact is a finalized WAV recording on disk.
type Artifact struct {
	Path      string
	Name      string
	SizeBytes int64
	Duration  time.Duration
	CreatedAt time.Time
}

// Remove deletes the artifact file. Removing an already-deleted artifact is not an error.
func (a Artifact) Remove() error {
	if a.Path == "" {
		return nil
	}
	if err := os.Remove(a.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove artifact %q: %w", a.Path, err)
	}
	return nil
}

// PCMBytesFor returns the number of PCM bytes captured over d.
func PCMBytesFor(d time.Duration) int {
	samples := int(d.Seconds() * SampleRate)
	return samples * Channels * bytesPerSample
}

// writeArtifact encodes pcm (s16le mono) as a WAV file in dir.
func writeArtifact(dir string, pcm []byte) (Artifact, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	name := artifactPrefix + uuid.NewString() + artifactExt
	path := filepath.Join(dir, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return Artifact{}, fmt.Errorf("create artifact: %w", err)
	}

	samples := decodePCM16(pcm)
	encoder := wav.NewEncoder(file, SampleRate, BitDepth, Channels, wavFormatPCM)
	buffer := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: Channels, SampleRate: SampleRate},
		Data:           samples,
		SourceBitDepth: BitDepth,
	}

	encodeErr := encoder.Write(buffer)
	if closeErr := encoder.Close(); encodeErr == nil {
		encodeErr = closeErr
	}
	if closeErr := file.Close(); encodeErr == nil {
		encodeErr = closeErr
	}
	if encodeErr != nil {
		_ = os.Remove(path)
		return Artifact{}, fmt.Errorf("encode wav: %w", encodeErr)
	}

	info, err := os.Stat(path)
	if err != nil {
		_ = os.Remove(path)
		return Artifact{}, fmt.Errorf("stat artifact: %w", err)
	}

	return Artifact{
		Path:      path,
		Name:      name,
		SizeBytes: info.Size(),
		Duration:  time.Duration(len(samples)) * time.Second / SampleRate,
		CreatedAt: time.Now(),
	}, nil
}

func decodePCM16(pcm []byte) []int {
	samples := make([]int, len(pcm)/bytesPerSample)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*bytesPerSample:])))
	}
	return samples
}

// CleanupStale removes artifacts left behind in dir by an earlier process.
// It returns the number of files removed.
func CleanupStale(dir string) (int, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read artifact dir: %w", err)
	}

	removed := 0
	var errs []error
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, artifactPrefix) || !strings.HasSuffix(name, artifactExt) {
			continue
		}
		if err := (Artifact{Path: filepath.Join(dir, name)}).Remove(); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

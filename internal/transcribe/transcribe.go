// Package transcribe exchanges a finalized audio artifact for text with a
// remote Whisper-compatible speech-to-text service.
package transcribe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/murmur/internal/audio"
)

const (
	DefaultEndpoint = "https://api.groq.com/openai/v1/audio/transcriptions"
	DefaultModel    = "whisper-large-v3"
	DefaultLanguage = "en"
	DefaultTimeout  = 30 * time.Second

	ProviderMultipart = "multipart"
	ProviderOpenAI    = "openai"
)

// Transcriber uploads one artifact and returns its text. Each call makes at
// most one round trip and never retries.
type Transcriber interface {
	Transcribe(ctx context.Context, artifact audio.Artifact, credential string) (string, error)
}

// Config selects and tunes a provider.
type Config struct {
	Provider string
	Endpoint string
	Model    string
	Language string
	Timeout  time.Duration
	HTTP2    bool
}

// DefaultConfig targets the Groq Whisper endpoint.
func DefaultConfig() Config {
	return Config{
		Provider: ProviderMultipart,
		Endpoint: DefaultEndpoint,
		Model:    DefaultModel,
		Language: DefaultLanguage,
		Timeout:  DefaultTimeout,
		HTTP2:    true,
	}
}

// New builds the Transcriber named by cfg.Provider.
func New(cfg Config, logger *slog.Logger) (Transcriber, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderMultipart, "":
		return NewClient(cfg, logger), nil
	case ProviderOpenAI:
		return NewSDKClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown transcription provider %q (supported: %s, %s)", cfg.Provider, ProviderMultipart, ProviderOpenAI)
	}
}

// BaseURL derives the OpenAI-style API root from a transcription endpoint.
func BaseURL(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	return strings.TrimSuffix(endpoint, "/audio/transcriptions")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Package config resolves, parses, validates, and defaults murmur configuration.
package config

// Config is the fully materialized runtime configuration used by murmur.
type Config struct {
	Transcription TranscriptionConfig
	Credential    CredentialConfig
	Audio         AudioConfig
	Session       SessionConfig
	Paste         PasteConfig
	Indicator     IndicatorConfig
	Clipboard     CommandConfig
	PasteCmd      CommandConfig
	Debug         DebugConfig
}

// TranscriptionConfig selects the speech-to-text provider and its request shape.
type TranscriptionConfig struct {
	Provider  string
	Endpoint  string
	Model     string
	Language  string
	TimeoutMS int
	HTTP2     bool
}

// CredentialConfig overrides where the API key is stored.
type CredentialConfig struct {
	File string
}

// AudioConfig controls input-source selection and capture limits.
type AudioConfig struct {
	Input         string
	Fallback      string
	Microphone    string
	MaxDurationMS int
	TempDir       string
}

// SessionConfig tunes the dictation session lifecycle.
type SessionConfig struct {
	ErrorDisplayMS int
}

// PasteConfig controls post-commit paste behavior.
type PasteConfig struct {
	Enable   bool
	Shortcut string
}

// IndicatorConfig controls visual indicator and audio cue behavior.
type IndicatorConfig struct {
	Enable         bool
	Backend        string
	DesktopAppName string
	SoundEnable    bool
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls optional debug output.
type DebugConfig struct {
	EnableAudioDump bool
	LogLevel        string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

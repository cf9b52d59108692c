package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	clipboard := "wl-copy --trim-newline"

	return Config{
		Transcription: TranscriptionConfig{
			Provider:  "multipart",
			Endpoint:  "https://api.groq.com/openai/v1/audio/transcriptions",
			Model:     "whisper-large-v3",
			Language:  "en",
			TimeoutMS: 30000,
			HTTP2:     true,
		},
		Audio: AudioConfig{
			Input:         "default",
			Fallback:      "default",
			Microphone:    "auto",
			MaxDurationMS: 60000,
		},
		Session: SessionConfig{ErrorDisplayMS: 2000},
		Paste:   PasteConfig{Enable: true, Shortcut: "CTRL,V"},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "hypr",
			DesktopAppName: "murmur-indicator",
			SoundEnable:    true,
		},
		Clipboard: mustCommand(clipboard),
		Debug:     DebugConfig{LogLevel: "info"},
	}
}

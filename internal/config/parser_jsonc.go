package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Transcription *jsoncTranscription `json:"transcription"`
	Credential    *jsoncCredential    `json:"credential"`
	Audio         *jsoncAudio         `json:"audio"`
	Session       *jsoncSession       `json:"session"`
	Paste         *jsoncPaste         `json:"paste"`
	Indicator     *jsoncIndicator     `json:"indicator"`

	ClipboardCmd *string     `json:"clipboard_cmd"`
	PasteCmd     *string     `json:"paste_cmd"`
	Debug        *jsoncDebug `json:"debug"`
}

type jsoncTranscription struct {
	Provider  *string `json:"provider"`
	Endpoint  *string `json:"endpoint"`
	Model     *string `json:"model"`
	Language  *string `json:"language"`
	TimeoutMS *int    `json:"timeout_ms"`
	HTTP2     *bool   `json:"http2"`
}

type jsoncCredential struct {
	File *string `json:"file"`
}

type jsoncAudio struct {
	Input         *string `json:"input"`
	Fallback      *string `json:"fallback"`
	Microphone    *string `json:"microphone"`
	MaxDurationMS *int    `json:"max_duration_ms"`
	TempDir       *string `json:"temp_dir"`
}

type jsoncSession struct {
	ErrorDisplayMS *int `json:"error_display_ms"`
}

type jsoncPaste struct {
	Enable   *bool   `json:"enable"`
	Shortcut *string `json:"shortcut"`
}

type jsoncIndicator struct {
	Enable         *bool   `json:"enable"`
	Backend        *string `json:"backend"`
	DesktopAppName *string `json:"desktop_app_name"`
	SoundEnable    *bool   `json:"sound_enable"`
}

type jsoncDebug struct {
	AudioDump *bool   `json:"audio_dump"`
	LogLevel  *string `json:"log_level"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if t := payload.Transcription; t != nil {
		setString(&cfg.Transcription.Provider, t.Provider)
		setString(&cfg.Transcription.Endpoint, t.Endpoint)
		setString(&cfg.Transcription.Model, t.Model)
		setString(&cfg.Transcription.Language, t.Language)
		if t.TimeoutMS != nil {
			cfg.Transcription.TimeoutMS = *t.TimeoutMS
		}
		if t.HTTP2 != nil {
			cfg.Transcription.HTTP2 = *t.HTTP2
		}
	}

	if payload.Credential != nil {
		setString(&cfg.Credential.File, payload.Credential.File)
	}

	if a := payload.Audio; a != nil {
		if a.Input != nil {
			cfg.Audio.Input = *a.Input
		}
		if a.Fallback != nil {
			cfg.Audio.Fallback = *a.Fallback
		}
		setString(&cfg.Audio.Microphone, a.Microphone)
		if a.MaxDurationMS != nil {
			cfg.Audio.MaxDurationMS = *a.MaxDurationMS
		}
		setString(&cfg.Audio.TempDir, a.TempDir)
	}

	if payload.Session != nil && payload.Session.ErrorDisplayMS != nil {
		cfg.Session.ErrorDisplayMS = *payload.Session.ErrorDisplayMS
	}

	if payload.Paste != nil {
		if payload.Paste.Enable != nil {
			cfg.Paste.Enable = *payload.Paste.Enable
		}
		setString(&cfg.Paste.Shortcut, payload.Paste.Shortcut)
	}

	if payload.Indicator != nil {
		if payload.Indicator.Enable != nil {
			cfg.Indicator.Enable = *payload.Indicator.Enable
		}
		setString(&cfg.Indicator.Backend, payload.Indicator.Backend)
		setString(&cfg.Indicator.DesktopAppName, payload.Indicator.DesktopAppName)
		if payload.Indicator.SoundEnable != nil {
			cfg.Indicator.SoundEnable = *payload.Indicator.SoundEnable
		}
	}

	if payload.ClipboardCmd != nil {
		cmd, err := ParseCommand(*payload.ClipboardCmd)
		if err != nil {
			return nil, fmt.Errorf("invalid clipboard_cmd: %w", err)
		}
		cfg.Clipboard = cmd
		if len(cmd.Argv) == 0 {
			warnings = append(warnings, Warning{Message: "clipboard_cmd is empty; using the built-in clipboard writer"})
		}
	}

	if payload.PasteCmd != nil {
		cmd, err := ParseCommand(*payload.PasteCmd)
		if err != nil {
			return nil, fmt.Errorf("invalid paste_cmd: %w", err)
		}
		cfg.PasteCmd = cmd
	}

	if payload.Debug != nil {
		if payload.Debug.AudioDump != nil {
			cfg.Debug.EnableAudioDump = *payload.Debug.AudioDump
		}
		setString(&cfg.Debug.LogLevel, payload.Debug.LogLevel)
	}

	return warnings, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

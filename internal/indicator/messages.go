package indicator

import (
	"os"
	"strings"
)

type locale string

const (
	localeEnglish locale = "en"
	localeGerman  locale = "de"
)

type messages struct {
	recording  string
	processing string
	errorText  string
}

func indicatorMessagesFromEnv() messages {
	return indicatorMessages(resolveLocale(os.Getenv("LANG")))
}

func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "de") {
		return localeGerman
	}
	return localeEnglish
}

func indicatorMessages(tag locale) messages {
	switch tag {
	case localeGerman:
		return messages{
			recording:  "Aufnahme…",
			processing: "Transkription…",
			errorText:  "Diktat fehlgeschlagen",
		}
	default:
		return messages{
			recording:  "Recording…",
			processing: "Transcribing…",
			errorText:  "Dictation failed",
		}
	}
}

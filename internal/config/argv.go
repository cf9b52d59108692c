package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	errOpenQuote  = errors.New("unterminated quote")
	errOpenEscape = errors.New("unterminated escape sequence")
)

// ParseCommand splits raw into argv using shell-like quoting. A blank value
// or one starting with '#' yields an empty command.
func ParseCommand(raw string) (CommandConfig, error) {
	cmd := CommandConfig{Raw: raw}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed[0] == '#' {
		return cmd, nil
	}

	argv, err := splitWords(trimmed)
	if err != nil {
		return CommandConfig{}, fmt.Errorf("%w in command: %q", err, trimmed)
	}
	cmd.Argv = argv
	return cmd, nil
}

// splitWords honours single and double quotes and backslash escapes.
// Quotes group characters but are not part of the word.
func splitWords(s string) ([]string, error) {
	var (
		words   []string
		word    []rune
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range s {
		if escaped {
			word, inWord, escaped = append(word, r), true, false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		if quote != 0 {
			if r == quote {
				quote = 0
			} else {
				word = append(word, r)
			}
			continue
		}
		switch {
		case r == '"' || r == '\'':
			quote, inWord = r, true
		case unicode.IsSpace(r):
			if inWord && len(word) > 0 {
				words = append(words, string(word))
			}
			word, inWord = word[:0], false
		default:
			word, inWord = append(word, r), true
		}
	}

	switch {
	case escaped:
		return nil, errOpenEscape
	case quote != 0:
		return nil, errOpenQuote
	}
	if len(word) > 0 {
		words = append(words, string(word))
	}
	return words, nil
}

func mustCommand(raw string) CommandConfig {
	cmd, err := ParseCommand(raw)
	if err != nil {
		panic(err)
	}
	return cmd
}

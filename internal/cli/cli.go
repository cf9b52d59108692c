// Package cli parses murmur's command line.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandServe      Command = "serve"
	CommandPress      Command = "press"
	CommandRelease    Command = "release"
	CommandToggle     Command = "toggle"
	CommandStatus     Command = "status"
	CommandDevices    Command = "devices"
	CommandDoctor     Command = "doctor"
	CommandCredential Command = "credential"
	CommandVersion    Command = "version"
	CommandHelp       Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandServe:      {},
	CommandPress:      {},
	CommandRelease:    {},
	CommandToggle:     {},
	CommandStatus:     {},
	CommandDevices:    {},
	CommandDoctor:     {},
	CommandCredential: {},
	CommandVersion:    {},
	CommandHelp:       {},
}

// Forwarded reports whether the command is relayed to the daemon over IPC.
func (c Command) Forwarded() bool {
	switch c {
	case CommandPress, CommandRelease, CommandToggle, CommandStatus:
		return true
	default:
		return false
	}
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			if i != len(args)-1 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>

Commands:
  serve       Run the dictation daemon
  press       Begin recording (push-to-talk key down)
  release     End recording and insert the transcript (key up)
  toggle      Press when idle, release when recording
  status      Print current state
  devices     List available input devices
  doctor      Run configuration and environment checks
  credential  Store the API key read from stdin
  version     Print version information
  help        Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/murmur/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}

// Package ipc carries push-to-talk intent from short-lived CLI invocations
// to the daemon over a unix socket, one JSON line each way.
package ipc

// Commands understood by the daemon.
const (
	CommandPress   = "press"
	CommandRelease = "release"
	CommandToggle  = "toggle"
	CommandStatus  = "status"
)

type Request struct {
	Command string `json:"command"`
}

type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

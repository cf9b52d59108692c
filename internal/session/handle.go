package session

import (
	"context"
	"fmt"

	"github.com/rbright/murmur/internal/ipc"
)

// Handle serves daemon IPC commands.
func (o *Orchestrator) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	var (
		accepted bool
		err      error
	)
	switch req.Command {
	case ipc.CommandStatus:
		status := o.Status()
		return ipc.Response{OK: true, State: string(status.State), Message: status.Message}
	case ipc.CommandPress:
		accepted, err = o.PressBegin(ctx)
	case ipc.CommandRelease:
		accepted, err = o.PressEnd(ctx)
	case ipc.CommandToggle:
		accepted, err = o.Toggle(ctx)
	default:
		return ipc.Response{OK: false, State: string(o.Status().State), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}

	status := o.Status()
	if err != nil {
		return ipc.Response{OK: false, State: string(status.State), Error: err.Error()}
	}
	if !accepted {
		return ipc.Response{OK: false, State: string(status.State), Error: fmt.Sprintf("%s ignored in state %s", req.Command, status)}
	}
	return ipc.Response{OK: true, State: string(status.State), Message: req.Command + " accepted"}
}

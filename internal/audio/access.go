package audio

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Microphone access policies.
const (
	AccessAuto  = "auto"
	AccessAllow = "allow"
	AccessDeny  = "deny"
)

// AccessGate answers whether the microphone may be used. Under the auto
// policy it asks the audio server once and remembers a determined answer.
type AccessGate struct {
	policy string
	probe  func(context.Context) error

	mu         sync.Mutex
	determined bool
	granted    bool
}

// NewAccessGate returns a gate for one of AccessAuto, AccessAllow, AccessDeny.
func NewAccessGate(policy string) *AccessGate {
	return &AccessGate{policy: strings.ToLower(strings.TrimSpace(policy)), probe: probePulse}
}

// Request resolves the permission, probing the server if still undetermined.
// An error means the question could not be answered at all.
func (g *AccessGate) Request(ctx context.Context) (bool, error) {
	switch g.policy {
	case AccessAllow:
		return true, nil
	case AccessDeny:
		return false, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.determined {
		return g.granted, nil
	}

	err := g.probe(ctx)
	switch {
	case err == nil:
		g.determined, g.granted = true, true
	case isAccessDenied(err):
		g.determined, g.granted = true, false
	default:
		return false, fmt.Errorf("probe audio server: %w", err)
	}
	return g.granted, nil
}

func probePulse(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	client, err := newPulseClient()
	if err != nil {
		return err
	}
	defer client.Close()
	if _, err := client.DefaultSource(); err != nil {
		return fmt.Errorf("read default source: %w", err)
	}
	return nil
}

func isAccessDenied(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "access denied")
}

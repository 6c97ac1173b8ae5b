package api

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/flowpilot/flowpilot/internal/core"
	"github.com/flowpilot/flowpilot/pkg/api/http/client"
	"github.com/flowpilot/flowpilot/pkg/store"
)

// Options tune the session.
type Options struct {
	// PollInterval between job fetches. Defaults to 1.5s.
	PollInterval time.Duration

	// TLSConfig for the runner connection, or nil for plain HTTP.
	TLSConfig *tls.Config
}

// Session bundles the two orchestrators over one runner connection and one
// snapshot store.
type Session struct {
	Workspace  Workspace
	Evaluation Evaluation

	kv store.Store
}

// New connects to the runner at address and returns a session whose state
// is persisted to kv after every observable change.
func New(address string, kv store.Store, opts *Options) (*Session, error) {
	if opts == nil {
		opts = &Options{}
	}

	cl, err := client.New(address, opts.TLSConfig)
	if err != nil {
		return nil, err
	}

	poller := core.NewPoller(cl, opts.PollInterval)
	return &Session{
		Workspace:  core.NewWorkspace(cl, poller, kv),
		Evaluation: core.NewEvaluation(cl, poller, kv),
		kv:         kv,
	}, nil
}

// Restore recovers both orchestrators from persisted state, resuming any
// job left non-final. Never fatal: parse failures restore fresh defaults.
func (s *Session) Restore(ctx context.Context) error {
	if err := s.Workspace.Restore(ctx); err != nil {
		return err
	}
	return s.Evaluation.Restore(ctx)
}

// Close releases the snapshot store.
func (s *Session) Close() error {
	if s.kv == nil {
		return nil
	}
	return s.kv.Close()
}

package main

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flowpilot/flowpilot/internal/stub"
	"github.com/flowpilot/flowpilot/pkg/api"
	"github.com/flowpilot/flowpilot/pkg/store"
)

const (
	tick = 10 * time.Millisecond
	poll = 5 * time.Millisecond

	waitTimeout = 10 * time.Second
)

// harness runs a full client session against the in-memory stub runner
// over real HTTP. Every test gets its own runner so job histories never
// bleed between tests.
type harness struct {
	runner  *stub.Service
	server  *httptest.Server
	kv      store.Store
	session *api.Session
}

func newHarness(t *testing.T) *harness {
	runner := stub.New(tick)
	server := httptest.NewServer(runner.Router(false))
	t.Cleanup(server.Close)

	kv := store.NewMemory()
	session, err := api.New(server.URL, kv, &api.Options{PollInterval: poll})
	if err != nil {
		t.Fatal(err)
	}
	return &harness{runner: runner, server: server, kv: kv, session: session}
}

// reconnect builds a second session over the same runner & store, as a
// fresh process (or page reload) would.
func (h *harness) reconnect(t *testing.T) *api.Session {
	session, err := api.New(h.server.URL, h.kv, &api.Options{PollInterval: poll})
	if err != nil {
		t.Fatal(err)
	}
	return session
}

// waitFor polls cond until it holds or the harness timeout expires.
func waitFor(t *testing.T, what string, cond func() bool) {
	start := time.Now()
	for !cond() {
		if time.Since(start) > waitTimeout {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(poll)
	}
}

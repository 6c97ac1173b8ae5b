package core

import (
	"context"
	"encoding/json"
	"log"

	"github.com/flowpilot/flowpilot/pkg/store"
)

// Storage keys, one per orchestrator slot.
const (
	keyWorkspace  = "workspace"
	keyEvaluation = "evaluation"
)

// saveSnapshot persists a snapshot after an observable state change.
// Best effort: a failed write must never break the operation that
// triggered it, so failures are logged and swallowed.
func saveSnapshot(ctx context.Context, kv store.Store, key string, snap interface{}) {
	if kv == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		log.Println("[Snapshot] marshal", key, err)
		return
	}
	if err := kv.Set(ctx, key, string(data)); err != nil {
		log.Println("[Snapshot] save", key, err)
	}
}

// loadSnapshot restores a snapshot into out. Absence or a parse failure
// mean "no prior state": false is returned, never an error. Callers check
// the version key themselves before adopting the decoded state.
func loadSnapshot(ctx context.Context, kv store.Store, key string, out interface{}) bool {
	if kv == nil {
		return false
	}
	raw, ok, err := kv.Get(ctx, key)
	if err != nil || !ok {
		if err != nil {
			log.Println("[Snapshot] load", key, err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		log.Println("[Snapshot] discarding unparsable state for", key, err)
		return false
	}
	return true
}

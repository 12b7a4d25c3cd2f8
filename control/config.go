// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Live-tunable settings with reload listeners. The server subscribes to
// keys it can change without a restart, such as "debug".

package control

import (
	"slices"
	"sync"
)

// ConfigStore is a dynamic key/value map with snapshot reads and listeners.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func(map[string]any)
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config: make(map[string]any),
	}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.snapshotLocked()
}

// Bool returns key as a bool, false when unset or of another type.
func (cs *ConfigStore) Bool(key string) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	v, _ := cs.config[key].(bool)
	return v
}

// SetConfig merges new values and notifies listeners synchronously with
// the merged snapshot.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	for k, v := range newCfg {
		cs.config[k] = v
	}
	snap := cs.snapshotLocked()
	listeners := slices.Clone(cs.listeners)
	cs.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// OnReload registers a listener called after every SetConfig.
func (cs *ConfigStore) OnReload(fn func(map[string]any)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

func (cs *ConfigStore) snapshotLocked() map[string]any {
	out := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		out[k] = v
	}
	return out
}

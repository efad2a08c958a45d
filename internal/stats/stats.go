package stats

import (
	"encoding/json"
	"expvar"
	"net/http"
	"sync"
	"time"
)

// Metric names tracked by the chat server.
const (
	ActiveConnections = "active_connections"
	OnlineUsers       = "online_users"
	PublicMessages    = "public_messages"
	PrivateMessages   = "private_messages"
	Reactions         = "reactions"
	DroppedEvents     = "dropped_events"
)

// Provider is the metrics surface the hub writes to.
type Provider interface {
	Incr(name string)
	Decr(name string)
	Set(name string, value int64)
	RegisterMetric(name string)
}

// Updater keeps counters in an unpublished expvar map so several instances can coexist.
type Updater struct {
	mu      sync.Mutex
	vars    *expvar.Map
	started time.Time
}

// NewUpdater creates an updater with the uptime gauge and every chat metric registered.
func NewUpdater() *Updater {
	su := &Updater{
		vars:    new(expvar.Map).Init(),
		started: time.Now(),
	}
	su.vars.Set("uptime_ms", expvar.Func(func() any {
		return time.Since(su.started).Milliseconds()
	}))
	for _, name := range []string{ActiveConnections, OnlineUsers, PublicMessages, PrivateMessages, Reactions, DroppedEvents} {
		su.RegisterMetric(name)
	}
	return su
}

func (su *Updater) RegisterMetric(name string) {
	su.mu.Lock()
	defer su.mu.Unlock()
	if su.vars.Get(name) == nil {
		su.vars.Set(name, new(expvar.Int))
	}
}

func (su *Updater) Incr(name string) {
	su.counter(name).Add(1)
}

func (su *Updater) Decr(name string) {
	su.counter(name).Add(-1)
}

func (su *Updater) Set(name string, value int64) {
	su.counter(name).Set(value)
}

// Value returns the current counter value, or zero if it is not registered.
func (su *Updater) Value(name string) int64 {
	if v, ok := su.vars.Get(name).(*expvar.Int); ok {
		return v.Value()
	}
	return 0
}

// Unknown names are registered on first use rather than panicking.
func (su *Updater) counter(name string) *expvar.Int {
	if v, ok := su.vars.Get(name).(*expvar.Int); ok {
		return v
	}
	su.RegisterMetric(name)
	return su.vars.Get(name).(*expvar.Int)
}

// Handler serves the metrics as a flat JSON object.
func (su *Updater) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		data := make(map[string]any)
		su.vars.Do(func(kv expvar.KeyValue) {
			var value any
			if err := json.Unmarshal([]byte(kv.Value.String()), &value); err == nil {
				data[kv.Key] = value
			}
		})
		_ = json.NewEncoder(w).Encode(data)
	})
}

// Nop discards every update.
type Nop struct{}

func (Nop) Incr(string)           {}
func (Nop) Decr(string)           {}
func (Nop) Set(string, int64)     {}
func (Nop) RegisterMetric(string) {}

package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"gridmatch-server/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultIdleTimeout is how long a device may stay silent before the
// sweep removes it.
const DefaultIdleTimeout = 300 * time.Second

var ErrDeviceNotFound = errors.New("device not found")

// Device is one known client.
type Device struct {
	ID          string
	Alias       string
	LastSeen    time.Time
	Wins        int
	Losses      int
	GamesPlayed int
}

// Stats is the win/loss view returned to clients.
type Stats struct {
	Wins   int
	Losses int
	Ratio  float64
}

// Registry tracks known devices, their liveness and their win/loss
// counters. All state lives in memory; a sweep removes idle entries.
type Registry struct {
	mu          sync.RWMutex
	devices     map[string]*Device
	idleTimeout time.Duration
}

// New returns an empty registry. A zero idleTimeout falls back to
// DefaultIdleTimeout.
func New(idleTimeout time.Duration) *Registry {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Registry{
		devices:     make(map[string]*Device),
		idleTimeout: idleTimeout,
	}
}

// Register allocates a fresh device with zero stats and returns a copy
// of it. Never fails.
func (r *Registry) Register(alias string) Device {
	d := &Device{
		ID:       uuid.NewString(),
		Alias:    alias,
		LastSeen: time.Now(),
	}

	r.mu.Lock()
	r.devices[d.ID] = d
	metrics.RegisteredDevices.Set(float64(len(r.devices)))
	r.mu.Unlock()

	log.Info().Str("deviceId", d.ID).Str("alias", alias).Msg("registry: device registered")
	return *d
}

// Touch refreshes the device's last-seen timestamp. Returns false for
// an unknown device instead of failing.
func (r *Registry) Touch(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return false
	}
	d.LastSeen = time.Now()
	return true
}

// Exists reports whether the device is currently known.
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.devices[id]
	return ok
}

// Get returns a copy of the device.
func (r *Registry) Get(id string) (Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return Device{}, ErrDeviceNotFound
	}
	return *d, nil
}

// Stats returns the device's win/loss counters. Ratio is wins over
// games credited, guarded against division by zero.
func (r *Registry) Stats(id string) (Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return Stats{}, ErrDeviceNotFound
	}
	total := d.Wins + d.Losses
	if total < 1 {
		total = 1
	}
	return Stats{
		Wins:   d.Wins,
		Losses: d.Losses,
		Ratio:  float64(d.Wins) / float64(total),
	}, nil
}

// List returns copies of all known devices, ordered by alias then id.
func (r *Registry) List() []Device {
	r.mu.RLock()
	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, *d)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Alias != out[j].Alias {
			return out[i].Alias < out[j].Alias
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// RecordResult credits a win or loss. Called exactly once per device
// per completed match; draws are not credited.
func (r *Registry) RecordResult(id string, didWin bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return false
	}
	if didWin {
		d.Wins++
	} else {
		d.Losses++
	}
	d.GamesPlayed++
	return true
}

// SweepExpired removes devices whose last-seen is older than the idle
// timeout and that are not in an active match, as reported by
// inActiveMatch. Returns the ids of the devices removed so the caller
// can tear down any state keyed by them, such as waiting entries.
//
// The sweep is snapshot-then-validate: stale candidates are collected
// under the read lock, the active-match exemption is evaluated with no
// registry lock held (inActiveMatch takes match locks), and deletion
// re-checks staleness under the write lock. A device touched between
// the phases survives, and the registry lock is never held across a
// match lock.
func (r *Registry) SweepExpired(now time.Time, inActiveMatch func(id string) bool) []string {
	cutoff := now.Add(-r.idleTimeout)

	r.mu.RLock()
	stale := make([]string, 0)
	for id, d := range r.devices {
		if d.LastSeen.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	if len(stale) == 0 {
		return nil
	}

	removable := stale[:0]
	for _, id := range stale {
		if inActiveMatch == nil || !inActiveMatch(id) {
			removable = append(removable, id)
		}
	}

	removed := make([]string, 0, len(removable))
	r.mu.Lock()
	for _, id := range removable {
		d, ok := r.devices[id]
		if !ok || !d.LastSeen.Before(cutoff) {
			continue
		}
		delete(r.devices, id)
		removed = append(removed, id)
	}
	metrics.RegisteredDevices.Set(float64(len(r.devices)))
	r.mu.Unlock()

	if len(removed) > 0 {
		metrics.DevicesSwept.Add(float64(len(removed)))
		log.Info().Int("removed", len(removed)).Msg("registry: swept idle devices")
	}
	return removed
}

// Len returns the number of known devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

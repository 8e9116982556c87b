package arena

import (
	"sync"
	"time"

	"gridmatch-server/game"
	"gridmatch-server/metrics"
	"gridmatch-server/registry"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultRetention is how long a terminal match stays queryable before
// the pruning job drops it.
const DefaultRetention = 10 * time.Minute

// Store owns the live set of matches and the waiting entries, bucketed
// by board size. It is the single point of concurrency control for
// matchmaking: the find-or-enqueue step runs under the store lock as
// one critical section, while per-match move traffic only takes the
// store's read lock plus the match's own lock.
type Store struct {
	mu       sync.RWMutex
	matches  map[string]*game.Match
	waiting  map[int][]*waitingEntry // key: board size
	byDevice map[string]*waitingEntry

	devices   *registry.Registry
	retention time.Duration
}

// NewStore creates an empty store backed by the given device registry.
// A zero retention falls back to DefaultRetention.
func NewStore(devices *registry.Registry, retention time.Duration) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Store{
		matches:   make(map[string]*game.Match),
		waiting:   make(map[int][]*waitingEntry),
		byDevice:  make(map[string]*waitingEntry),
		devices:   devices,
		retention: retention,
	}
}

// RequestMatch pairs the device with a same-size waiter, or parks it as
// waiting when none exists. The waiter that arrived first gets X and
// the first turn; the requester gets O. Search and create-or-enqueue
// are one atomic unit, so two concurrent requests for the same size
// pair exactly once.
func (s *Store) RequestMatch(deviceID string, size int) (RequestResult, error) {
	if !game.ValidSize(size) {
		return RequestResult{}, ErrInvalidSize
	}
	if !s.devices.Touch(deviceID) {
		return RequestResult{}, registry.ErrDeviceNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, waiting := s.byDevice[deviceID]; waiting {
		return RequestResult{}, ErrAlreadyPending
	}
	if s.activeMatchLocked(deviceID) != nil {
		return RequestResult{}, ErrAlreadyPending
	}

	for len(s.waiting[size]) > 0 {
		waiter := s.waiting[size][0]
		s.waiting[size] = s.waiting[size][1:]
		delete(s.byDevice, waiter.deviceID)
		metrics.WaitingEntries.Dec()

		// A waiter the registry has since expired left a dead entry;
		// drop it rather than pairing against a device that can never
		// move.
		if !s.devices.Exists(waiter.deviceID) {
			log.Warn().Str("deviceId", waiter.deviceID).Int("size", size).
				Msg("arena: dropped waiting entry for expired device")
			continue
		}

		m := game.NewMatch(uuid.NewString(), size, waiter.deviceID, deviceID, time.Now())
		snap := m.Snapshot()
		s.matches[snap.ID] = m

		metrics.MatchesCreated.Inc()
		metrics.ActiveMatches.Inc()
		log.Info().
			Str("matchId", snap.ID).
			Int("size", size).
			Str("playerX", waiter.deviceID).
			Str("playerO", deviceID).
			Msg("arena: match created")
		return RequestResult{Matched: true, Match: snap}, nil
	}

	entry := &waitingEntry{deviceID: deviceID, size: size, enqueuedAt: time.Now()}
	s.waiting[size] = append(s.waiting[size], entry)
	s.byDevice[deviceID] = entry
	metrics.WaitingEntries.Inc()
	log.Info().Str("deviceId", deviceID).Int("size", size).Msg("arena: device queued")
	return RequestResult{}, nil
}

// PollWaiting reports whether the device is still parked or has been
// paired since its last poll. ErrNotWaiting when neither holds.
func (s *Store) PollWaiting(deviceID string) (WaitStatus, error) {
	s.devices.Touch(deviceID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.byDevice[deviceID]; ok {
		return WaitStatus{}, nil
	}
	// Only non-terminal matches are reported. A waiter's match cannot
	// end before this poll: the waiter holds the first turn, and its
	// move requires the match id this poll is the source of.
	if m := s.activeMatchLocked(deviceID); m != nil {
		return WaitStatus{Matched: true, Match: m.Snapshot()}, nil
	}
	return WaitStatus{}, ErrNotWaiting
}

// CancelWaiting removes the device's waiting entry if present. No-op
// otherwise.
func (s *Store) CancelWaiting(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byDevice[deviceID]
	if !ok {
		return
	}
	delete(s.byDevice, deviceID)
	bucket := s.waiting[entry.size]
	for i, e := range bucket {
		if e.deviceID == deviceID {
			s.waiting[entry.size] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	metrics.WaitingEntries.Dec()
	log.Info().Str("deviceId", deviceID).Int("size", entry.size).Msg("arena: waiting entry cancelled")
}

// GetMatch returns the public view of a match.
func (s *Store) GetMatch(matchID string) (game.Snapshot, error) {
	s.mu.RLock()
	m, ok := s.matches[matchID]
	s.mu.RUnlock()
	if !ok {
		return game.Snapshot{}, ErrMatchNotFound
	}
	return m.Snapshot(), nil
}

// ApplyMove routes a move to its match and, on the move that ends the
// game, credits both players' stats. The match serializes its own
// read-check-write sequence; the store lock is only held to look the
// match up, so moves on different matches never contend.
func (s *Store) ApplyMove(matchID, deviceID string, x, y int) (game.Snapshot, error) {
	s.mu.RLock()
	m, ok := s.matches[matchID]
	s.mu.RUnlock()
	if !ok {
		metrics.MovesTotal.WithLabelValues("rejected").Inc()
		return game.Snapshot{}, ErrMatchNotFound
	}

	out, err := m.ApplyMove(deviceID, x, y, time.Now())
	if err != nil {
		metrics.MovesTotal.WithLabelValues("rejected").Inc()
		return game.Snapshot{}, err
	}
	metrics.MovesTotal.WithLabelValues("accepted").Inc()
	s.devices.Touch(deviceID)

	if out.Ended {
		metrics.ActiveMatches.Dec()
		metrics.MatchDuration.Observe(out.Snapshot.FinishedAt.Sub(out.Snapshot.CreatedAt).Seconds())
		// Ended is true exactly once per match, so each device is
		// credited exactly once. Draws credit nobody.
		if out.WinnerID != "" {
			s.devices.RecordResult(out.WinnerID, true)
			s.devices.RecordResult(out.LoserID, false)
		}
		log.Info().
			Str("matchId", matchID).
			Str("winner", string(out.Snapshot.Winner)).
			Bool("draw", out.Snapshot.Draw).
			Msg("arena: match finished")
	}
	return out.Snapshot, nil
}

// SweepExpiredDevices removes idle devices from the registry and
// destroys any waiting entries they left behind, keeping the
// one-entry-per-device lifecycle tied to the device's own. Active
// match participants are exempt from the sweep. Returns the number of
// devices removed.
func (s *Store) SweepExpiredDevices(now time.Time) int {
	removed := s.devices.SweepExpired(now, s.DeviceInActiveMatch)
	for _, id := range removed {
		s.CancelWaiting(id)
	}
	return len(removed)
}

// DeviceInActiveMatch reports whether the device participates in a
// non-terminal match. Used by the registry sweep's exemption rule.
func (s *Store) DeviceInActiveMatch(deviceID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeMatchLocked(deviceID) != nil
}

// PruneTerminal drops matches that reached their terminal state more
// than the retention period before now. Active matches are never
// touched. Returns the number of matches removed.
func (s *Store) PruneTerminal(now time.Time) int {
	cutoff := now.Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, m := range s.matches {
		if m.FinishedBefore(cutoff) {
			delete(s.matches, id)
			removed++
		}
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("arena: pruned terminal matches")
	}
	return removed
}

// Counts returns the number of live matches and waiting entries.
func (s *Store) Counts() (matches, waiting int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches), len(s.byDevice)
}

// activeMatchLocked scans for a non-terminal match the device plays in.
// Caller holds s.mu.
func (s *Store) activeMatchLocked(deviceID string) *game.Match {
	for _, m := range s.matches {
		if m.HasParticipant(deviceID) && !m.Terminal() {
			return m
		}
	}
	return nil
}

package arena

import (
	"sync"
	"testing"
	"time"

	"gridmatch-server/game"
	"gridmatch-server/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *registry.Registry) {
	t.Helper()
	reg := registry.New(0)
	return NewStore(reg, 0), reg
}

func registerPair(t *testing.T, reg *registry.Registry) (string, string) {
	t.Helper()
	return reg.Register("alice").ID, reg.Register("bob").ID
}

func TestRequestMatch_InvalidSize(t *testing.T) {
	s, reg := newTestStore(t)
	dev := reg.Register("alice").ID

	for _, size := range []int{-1, 0, 2, 8, 100} {
		_, err := s.RequestMatch(dev, size)
		assert.ErrorIs(t, err, ErrInvalidSize, "size %d", size)
	}
}

func TestRequestMatch_UnknownDevice(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.RequestMatch("ghost", 3)
	assert.ErrorIs(t, err, registry.ErrDeviceNotFound)
}

func TestRequestMatch_QueueThenPair(t *testing.T) {
	s, reg := newTestStore(t)
	a, b := registerPair(t, reg)

	res, err := s.RequestMatch(a, 3)
	require.NoError(t, err)
	assert.False(t, res.Matched, "first requester should be queued")

	// A second request while waiting is rejected.
	_, err = s.RequestMatch(a, 3)
	assert.ErrorIs(t, err, ErrAlreadyPending)

	res, err = s.RequestMatch(b, 3)
	require.NoError(t, err)
	require.True(t, res.Matched)

	// Waiter gets X and the first turn, requester gets O.
	assert.Equal(t, game.SymbolX, res.Match.Players[a])
	assert.Equal(t, game.SymbolO, res.Match.Players[b])
	assert.Equal(t, a, res.Match.Turn)
	assert.Equal(t, 3, res.Match.Size)

	matches, waiting := s.Counts()
	assert.Equal(t, 1, matches)
	assert.Zero(t, waiting, "pairing consumes the waiting entry")

	// The waiter discovers the pairing via poll.
	ws, err := s.PollWaiting(a)
	require.NoError(t, err)
	require.True(t, ws.Matched)
	assert.Equal(t, res.Match.ID, ws.Match.ID)
}

func TestRequestMatch_SizesDoNotCrossPair(t *testing.T) {
	s, reg := newTestStore(t)
	a, b := registerPair(t, reg)

	res, err := s.RequestMatch(a, 3)
	require.NoError(t, err)
	assert.False(t, res.Matched)

	res, err = s.RequestMatch(b, 5)
	require.NoError(t, err)
	assert.False(t, res.Matched, "different sizes must not pair")

	matches, waiting := s.Counts()
	assert.Zero(t, matches)
	assert.Equal(t, 2, waiting)
}

func TestRequestMatch_ActiveMatchBlocksRequeue(t *testing.T) {
	s, reg := newTestStore(t)
	a, b := registerPair(t, reg)

	_, err := s.RequestMatch(a, 3)
	require.NoError(t, err)
	res, err := s.RequestMatch(b, 3)
	require.NoError(t, err)
	require.True(t, res.Matched)

	_, err = s.RequestMatch(a, 3)
	assert.ErrorIs(t, err, ErrAlreadyPending)
	_, err = s.RequestMatch(b, 4)
	assert.ErrorIs(t, err, ErrAlreadyPending, "active match blocks any size")

	playTopRowWin(t, s, res.Match.ID, a, b)

	// Terminal match releases both devices for new requests.
	res, err = s.RequestMatch(a, 3)
	require.NoError(t, err)
	assert.False(t, res.Matched)
}

func TestCancelWaiting(t *testing.T) {
	s, reg := newTestStore(t)
	a, b := registerPair(t, reg)

	// Idempotent on a device that never queued.
	s.CancelWaiting(a)

	_, err := s.RequestMatch(a, 3)
	require.NoError(t, err)
	s.CancelWaiting(a)
	s.CancelWaiting(a)

	_, err = s.PollWaiting(a)
	assert.ErrorIs(t, err, ErrNotWaiting)

	// The cancelled entry must not pair with the next requester.
	res, err := s.RequestMatch(b, 3)
	require.NoError(t, err)
	assert.False(t, res.Matched)
}

func TestPollWaiting_NotFound(t *testing.T) {
	s, reg := newTestStore(t)
	dev := reg.Register("alice").ID

	_, err := s.PollWaiting(dev)
	assert.ErrorIs(t, err, ErrNotWaiting)
}

func TestGetMatch_NotFound(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.GetMatch("missing")
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestApplyMove_UnknownMatch(t *testing.T) {
	s, reg := newTestStore(t)
	dev := reg.Register("alice").ID
	_, err := s.ApplyMove("missing", dev, 0, 0)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestApplyMove_WinCreditsStats(t *testing.T) {
	s, reg := newTestStore(t)
	a, b := registerPair(t, reg)
	matchID := pair(t, s, a, b, 3)

	playTopRowWin(t, s, matchID, a, b)

	snap, err := s.GetMatch(matchID)
	require.NoError(t, err)
	assert.Equal(t, game.SymbolX, snap.Winner)
	assert.Equal(t, []int{0, 1, 2}, snap.Line)
	assert.Empty(t, snap.Turn)

	// Winner gets a win, loser a loss, exactly once.
	sa, err := reg.Stats(a)
	require.NoError(t, err)
	sb, err := reg.Stats(b)
	require.NoError(t, err)
	assert.Equal(t, 1, sa.Wins)
	assert.Zero(t, sa.Losses)
	assert.Zero(t, sb.Wins)
	assert.Equal(t, 1, sb.Losses)

	_, err = s.ApplyMove(matchID, b, 2, 2)
	assert.ErrorIs(t, err, game.ErrAlreadyTerminal)
}

func TestApplyMove_DrawCreditsNobody(t *testing.T) {
	s, reg := newTestStore(t)
	a, b := registerPair(t, reg)
	matchID := pair(t, s, a, b, 3)

	moves := []struct {
		device string
		x, y   int
	}{
		{a, 0, 0}, {b, 0, 1},
		{a, 0, 2}, {b, 1, 1},
		{a, 1, 0}, {b, 1, 2},
		{a, 2, 1}, {b, 2, 0},
		{a, 2, 2},
	}
	var snap game.Snapshot
	for i, mv := range moves {
		var err error
		snap, err = s.ApplyMove(matchID, mv.device, mv.x, mv.y)
		require.NoError(t, err, "move %d", i)
	}
	assert.True(t, snap.Draw)

	for _, dev := range []string{a, b} {
		st, err := reg.Stats(dev)
		require.NoError(t, err)
		assert.Zero(t, st.Wins)
		assert.Zero(t, st.Losses)
	}
}

func TestConcurrentRequests_PairExactlyOnce(t *testing.T) {
	s, reg := newTestStore(t)

	const pairs = 10
	ids := make([]string, 0, pairs*2)
	for i := 0; i < pairs*2; i++ {
		ids = append(ids, reg.Register("racer").ID)
	}

	var wg sync.WaitGroup
	results := make(chan RequestResult, len(ids))
	for _, id := range ids {
		wg.Add(1)
		go func(dev string) {
			defer wg.Done()
			res, err := s.RequestMatch(dev, 4)
			if err != nil {
				t.Errorf("RequestMatch(%s): %v", dev, err)
				return
			}
			results <- res
		}(id)
	}
	wg.Wait()
	close(results)

	matched := 0
	for res := range results {
		if res.Matched {
			matched++
		}
	}

	matches, waiting := s.Counts()
	assert.Equal(t, pairs, matches, "every two requesters must yield exactly one match")
	assert.Zero(t, waiting, "an even number of requesters leaves nobody queued")
	assert.Equal(t, pairs, matched)

	// Each device ended up in exactly one active match.
	for _, id := range ids {
		assert.True(t, s.DeviceInActiveMatch(id), "device %s has no match", id)
	}
}

func TestDeviceInActiveMatch(t *testing.T) {
	s, reg := newTestStore(t)
	a, b := registerPair(t, reg)

	assert.False(t, s.DeviceInActiveMatch(a))

	matchID := pair(t, s, a, b, 3)
	assert.True(t, s.DeviceInActiveMatch(a))
	assert.True(t, s.DeviceInActiveMatch(b))

	playTopRowWin(t, s, matchID, a, b)
	assert.False(t, s.DeviceInActiveMatch(a), "terminal match is not active")
}

func TestPruneTerminal(t *testing.T) {
	reg := registry.New(0)
	s := NewStore(reg, time.Minute)
	a, b := registerPair(t, reg)

	finished := pair(t, s, a, b, 3)
	playTopRowWin(t, s, finished, a, b)

	c, d := registerPair(t, reg)
	active := pair(t, s, c, d, 3)

	// Within retention: nothing to prune.
	assert.Zero(t, s.PruneTerminal(time.Now()))

	removed := s.PruneTerminal(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 1, removed)

	_, err := s.GetMatch(finished)
	assert.ErrorIs(t, err, ErrMatchNotFound)
	_, err = s.GetMatch(active)
	assert.NoError(t, err, "in-progress match survives pruning")
}

func TestSweepExpiredDevices_DestroysWaitingEntry(t *testing.T) {
	s, reg := newTestStore(t)
	ghost := reg.Register("ghost").ID

	res, err := s.RequestMatch(ghost, 3)
	require.NoError(t, err)
	require.False(t, res.Matched)

	// Default 300s idle timeout: a sweep dated far enough ahead sees
	// the parked waiter as idle.
	removed := s.SweepExpiredDevices(time.Now().Add(10 * time.Minute))
	assert.Equal(t, 1, removed)
	assert.False(t, reg.Exists(ghost))

	// The waiting entry dies with its device.
	_, waiting := s.Counts()
	assert.Zero(t, waiting)
	_, err = s.PollWaiting(ghost)
	assert.ErrorIs(t, err, ErrNotWaiting)

	// The next same-size requester queues instead of pairing against
	// the removed device.
	live := reg.Register("bob").ID
	res, err = s.RequestMatch(live, 3)
	require.NoError(t, err)
	assert.False(t, res.Matched)
}

func TestSweepExpiredDevices_ActiveMatchExempt(t *testing.T) {
	s, reg := newTestStore(t)
	a, b := registerPair(t, reg)
	pair(t, s, a, b, 3)

	removed := s.SweepExpiredDevices(time.Now().Add(10 * time.Minute))
	assert.Zero(t, removed)
	assert.True(t, reg.Exists(a))
	assert.True(t, reg.Exists(b))
}

func TestRequestMatch_SkipsExpiredWaiterEntry(t *testing.T) {
	s, reg := newTestStore(t)
	ghost := reg.Register("ghost").ID

	res, err := s.RequestMatch(ghost, 3)
	require.NoError(t, err)
	require.False(t, res.Matched)

	// Sweep the registry directly, leaving the waiting entry behind
	// the way a lagging cleanup would.
	removed := reg.SweepExpired(time.Now().Add(10*time.Minute), s.DeviceInActiveMatch)
	require.Equal(t, []string{ghost}, removed)

	live := reg.Register("bob").ID
	res, err = s.RequestMatch(live, 3)
	require.NoError(t, err)
	assert.False(t, res.Matched, "must not pair with an expired device")

	// The dead entry is dropped and the live device queued in its
	// place.
	_, waiting := s.Counts()
	assert.Equal(t, 1, waiting)
	ws, err := s.PollWaiting(live)
	require.NoError(t, err)
	assert.False(t, ws.Matched)
}

// pair queues a and pairs b against it, returning the match id.
func pair(t *testing.T, s *Store, a, b string, size int) string {
	t.Helper()
	res, err := s.RequestMatch(a, size)
	require.NoError(t, err)
	require.False(t, res.Matched)
	res, err = s.RequestMatch(b, size)
	require.NoError(t, err)
	require.True(t, res.Matched)
	return res.Match.ID
}

// playTopRowWin drives the match to an X win for the waiter a.
func playTopRowWin(t *testing.T, s *Store, matchID, a, b string) {
	t.Helper()
	moves := []struct {
		device string
		x, y   int
	}{
		{a, 0, 0}, {b, 1, 0},
		{a, 0, 1}, {b, 1, 1},
		{a, 0, 2},
	}
	for _, mv := range moves {
		if _, err := s.ApplyMove(matchID, mv.device, mv.x, mv.y); err != nil {
			t.Fatalf("setup move (%d,%d) by %s: %v", mv.x, mv.y, mv.device, err)
		}
	}
}

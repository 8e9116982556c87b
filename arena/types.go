package arena

import (
	"errors"
	"time"

	"gridmatch-server/game"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	ErrInvalidSize   = errors.New("board size must be between 3 and 7")
	// ErrAlreadyPending rejects a match request from a device that is
	// already waiting or already playing.
	ErrAlreadyPending = errors.New("device already waiting or in an active match")
	// ErrNotWaiting means the device has no waiting entry and no newly
	// created match to report.
	ErrNotWaiting = errors.New("device has no pending matchmaking request")
)

// RequestResult is the outcome of a match request: either an immediate
// pairing or a parked waiting entry.
type RequestResult struct {
	Matched bool
	Match   game.Snapshot // zero value unless Matched
}

// WaitStatus is the outcome of polling a pending matchmaking request.
type WaitStatus struct {
	Matched bool
	Match   game.Snapshot // zero value unless Matched
}

// waitingEntry is a parked matchmaking request: one device waiting for
// an opponent on a given board size. At most one per device.
type waitingEntry struct {
	deviceID   string
	size       int
	enqueuedAt time.Time
}

package game

import (
	"errors"
	"sync"
	"time"
)

// Illegal-move errors, in the order ApplyMove checks them.
var (
	ErrForbidden       = errors.New("device is not a participant of this match")
	ErrAlreadyTerminal = errors.New("match already has a result")
	ErrNotYourTurn     = errors.New("not this device's turn")
	ErrOutOfBounds     = errors.New("cell coordinates out of bounds")
	ErrCellOccupied    = errors.New("cell is already occupied")
)

// Match is one game: board, the two assigned devices, the turn pointer
// and the terminal result. Each match carries its own mutex so moves
// against one match never block another.
type Match struct {
	mu sync.Mutex

	id      string
	board   *Board
	players map[string]Cell // device id -> symbol, exactly two entries
	turn    string          // device id to move; empty once terminal

	winner     Cell // set on win
	draw       bool
	line       []int
	createdAt  time.Time
	finishedAt time.Time // zero until terminal
}

// NewMatch creates a fresh match. playerX moves first.
func NewMatch(id string, size int, playerX, playerO string, now time.Time) *Match {
	return &Match{
		id:    id,
		board: NewBoard(size),
		players: map[string]Cell{
			playerX: SymbolX,
			playerO: SymbolO,
		},
		turn:      playerX,
		createdAt: now,
	}
}

// Snapshot is an immutable public view of a match.
type Snapshot struct {
	ID         string
	Size       int
	Board      [][]Cell
	Players    map[string]Cell
	Turn       string // empty once terminal
	Winner     Cell   // empty unless won
	Draw       bool
	Line       []int
	CreatedAt  time.Time
	FinishedAt time.Time
}

// Terminal reports whether the snapshot is of a concluded match.
func (s Snapshot) Terminal() bool {
	return s.Winner != Empty || s.Draw
}

// MoveOutcome is the result of an accepted move.
type MoveOutcome struct {
	Snapshot Snapshot
	// Ended is true only on the move that reached the terminal state,
	// so result recording happens exactly once per match.
	Ended    bool
	WinnerID string // empty on draw
	LoserID  string // empty on draw
}

// ApplyMove validates and applies a move by deviceID at (x, y), where x
// is the row and y the column. On error the match is unchanged. The
// read-check-write sequence runs under the match lock, so concurrent
// submissions against the same match serialize and the loser of the
// race observes NotYourTurn or CellOccupied.
func (m *Match) ApplyMove(deviceID string, x, y int, now time.Time) (MoveOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	symbol, ok := m.players[deviceID]
	if !ok {
		return MoveOutcome{}, ErrForbidden
	}
	if m.terminal() {
		return MoveOutcome{}, ErrAlreadyTerminal
	}
	if m.turn != deviceID {
		return MoveOutcome{}, ErrNotYourTurn
	}
	if !m.board.InBounds(x, y) {
		return MoveOutcome{}, ErrOutOfBounds
	}
	if m.board.At(x, y) != Empty {
		return MoveOutcome{}, ErrCellOccupied
	}

	m.board.set(x, y, symbol)

	// Win is checked before draw: a move that fills the board while
	// completing a line is a win.
	if res := Evaluate(m.board); res != nil {
		m.winner = res.Winner
		m.line = res.Line
		m.turn = ""
		m.finishedAt = now
		winnerID, loserID := m.splitByResult(res.Winner)
		return MoveOutcome{
			Snapshot: m.snapshot(),
			Ended:    true,
			WinnerID: winnerID,
			LoserID:  loserID,
		}, nil
	}

	if m.board.Full() {
		m.draw = true
		m.turn = ""
		m.finishedAt = now
		return MoveOutcome{Snapshot: m.snapshot(), Ended: true}, nil
	}

	m.turn = m.opponent(deviceID)
	return MoveOutcome{Snapshot: m.snapshot()}, nil
}

// Snapshot returns the current public view.
func (m *Match) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

// HasParticipant reports whether deviceID plays in this match.
func (m *Match) HasParticipant(deviceID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.players[deviceID]
	return ok
}

// Terminal reports whether the match has concluded.
func (m *Match) Terminal() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.terminal()
}

// FinishedBefore reports whether the match ended before cutoff. Always
// false for matches still in progress.
func (m *Match) FinishedBefore(cutoff time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.terminal() && m.finishedAt.Before(cutoff)
}

func (m *Match) terminal() bool {
	return m.winner != Empty || m.draw
}

func (m *Match) opponent(deviceID string) string {
	for id := range m.players {
		if id != deviceID {
			return id
		}
	}
	return ""
}

func (m *Match) splitByResult(winner Cell) (winnerID, loserID string) {
	for id, sym := range m.players {
		if sym == winner {
			winnerID = id
		} else {
			loserID = id
		}
	}
	return winnerID, loserID
}

func (m *Match) snapshot() Snapshot {
	players := make(map[string]Cell, len(m.players))
	for id, sym := range m.players {
		players[id] = sym
	}
	var line []int
	if m.line != nil {
		line = append([]int(nil), m.line...)
	}
	return Snapshot{
		ID:         m.id,
		Size:       m.board.Size(),
		Board:      m.board.Rows(),
		Players:    players,
		Turn:       m.turn,
		Winner:     m.winner,
		Draw:       m.draw,
		Line:       line,
		CreatedAt:  m.createdAt,
		FinishedAt: m.finishedAt,
	}
}

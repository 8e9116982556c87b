package api

import (
	"time"

	"gridmatch-server/game"
)

// Request and response bodies. Field names are the wire contract the
// mobile client depends on.

type registerRequest struct {
	Alias string `json:"alias"`
}

type registerResponse struct {
	DeviceID string `json:"device_id"`
	Alias    string `json:"alias"`
}

type deviceSummary struct {
	DeviceID string    `json:"device_id"`
	Alias    string    `json:"alias"`
	LastSeen time.Time `json:"last_seen"`
	Wins     int       `json:"wins"`
	Losses   int       `json:"losses"`
}

type deviceInfoResponse struct {
	Wins   int     `json:"wins"`
	Losses int     `json:"losses"`
	Ratio  float64 `json:"ratio"`
}

// matchRequest leaves size unvalidated at the binding layer so a
// missing or zero size reports invalid_size like any other
// out-of-range value.
type matchRequest struct {
	DeviceID string `json:"device_id" binding:"required"`
	Size     int    `json:"size"`
}

// moveRequest uses pointers so that x=0 or y=0 still satisfies the
// required binding.
type moveRequest struct {
	DeviceID string `json:"device_id" binding:"required"`
	X        *int   `json:"x" binding:"required"`
	Y        *int   `json:"y" binding:"required"`
}

type matchCreatedResponse struct {
	MatchID   string               `json:"match_id"`
	BoardSize int                  `json:"board_size"`
	Players   map[string]game.Cell `json:"players"`
}

const (
	statusWaiting = "waiting"
	statusMatched = "matched"
)

type waitingStatusResponse struct {
	Status    string               `json:"status"`
	MatchID   string               `json:"match_id,omitempty"`
	BoardSize int                  `json:"board_size,omitempty"`
	Players   map[string]game.Cell `json:"players,omitempty"`
}

type matchStateResponse struct {
	MatchID     string               `json:"match_id"`
	Size        int                  `json:"size"`
	Board       [][]game.Cell        `json:"board"`
	Players     map[string]game.Cell `json:"players"`
	Turn        *string              `json:"turn"`
	Winner      *string              `json:"winner"`
	WinningLine []int                `json:"winning_line,omitempty"`
}

type moveResponse struct {
	Board       [][]game.Cell `json:"board"`
	NextTurn    *string       `json:"next_turn"`
	Winner      *string       `json:"winner"`
	WinningLine []int         `json:"winning_line,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// winnerField renders the terminal result the way the client expects:
// "X" or "O" on a win, "Draw" on a draw, null otherwise.
func winnerField(s game.Snapshot) *string {
	if s.Winner != game.Empty {
		w := string(s.Winner)
		return &w
	}
	if s.Draw {
		w := "Draw"
		return &w
	}
	return nil
}

// turnField is the device id to move, null once the match is terminal.
func turnField(s game.Snapshot) *string {
	if s.Turn == "" {
		return nil
	}
	t := s.Turn
	return &t
}

func newMatchStateResponse(s game.Snapshot) matchStateResponse {
	return matchStateResponse{
		MatchID:     s.ID,
		Size:        s.Size,
		Board:       s.Board,
		Players:     s.Players,
		Turn:        turnField(s),
		Winner:      winnerField(s),
		WinningLine: s.Line,
	}
}

package api

import (
	"errors"
	"net/http"

	"gridmatch-server/arena"
	"gridmatch-server/game"
	"gridmatch-server/registry"

	"github.com/gin-gonic/gin"
)

// Handler serves the REST boundary. All state lives in the injected
// registry and store.
type Handler struct {
	devices *registry.Registry
	store   *arena.Store
}

// RegisterDevice allocates a fresh device id for the given alias.
func (h *Handler) RegisterDevice(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "bad_request", Message: err.Error()})
		return
	}
	if req.Alias == "" {
		req.Alias = "Player"
	}

	d := h.devices.Register(req.Alias)
	c.JSON(http.StatusCreated, registerResponse{DeviceID: d.ID, Alias: d.Alias})
}

// ListDevices returns all devices currently known to the registry.
func (h *Handler) ListDevices(c *gin.Context) {
	devices := h.devices.List()
	out := make([]deviceSummary, 0, len(devices))
	for _, d := range devices {
		out = append(out, deviceSummary{
			DeviceID: d.ID,
			Alias:    d.Alias,
			LastSeen: d.LastSeen,
			Wins:     d.Wins,
			Losses:   d.Losses,
		})
	}
	c.JSON(http.StatusOK, out)
}

// DeviceInfo returns the device's win/loss stats.
func (h *Handler) DeviceInfo(c *gin.Context) {
	id := c.Param("id")
	h.devices.Touch(id)

	stats, err := h.devices.Stats(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, deviceInfoResponse{
		Wins:   stats.Wins,
		Losses: stats.Losses,
		Ratio:  stats.Ratio,
	})
}

// CreateMatch pairs the device with a waiting opponent (201) or parks
// it in the queue (202).
func (h *Handler) CreateMatch(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "bad_request", Message: err.Error()})
		return
	}

	res, err := h.store.RequestMatch(req.DeviceID, req.Size)
	if err != nil {
		writeError(c, err)
		return
	}
	if !res.Matched {
		c.JSON(http.StatusAccepted, waitingStatusResponse{Status: statusWaiting, BoardSize: req.Size})
		return
	}
	c.JSON(http.StatusCreated, matchCreatedResponse{
		MatchID:   res.Match.ID,
		BoardSize: res.Match.Size,
		Players:   res.Match.Players,
	})
}

// WaitingStatus reports whether the polling device is still waiting or
// has been matched since its last poll.
func (h *Handler) WaitingStatus(c *gin.Context) {
	deviceID := c.Query("device_id")
	if deviceID == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "device_id query parameter is required"})
		return
	}

	ws, err := h.store.PollWaiting(deviceID)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ws.Matched {
		c.JSON(http.StatusOK, waitingStatusResponse{Status: statusWaiting})
		return
	}
	c.JSON(http.StatusOK, waitingStatusResponse{
		Status:    statusMatched,
		MatchID:   ws.Match.ID,
		BoardSize: ws.Match.Size,
		Players:   ws.Match.Players,
	})
}

// CancelWaiting drops the device's waiting entry. Idempotent.
func (h *Handler) CancelWaiting(c *gin.Context) {
	deviceID := c.Query("device_id")
	if deviceID == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "device_id query parameter is required"})
		return
	}
	h.store.CancelWaiting(deviceID)
	c.Status(http.StatusNoContent)
}

// GetMatch returns the current state of a match.
func (h *Handler) GetMatch(c *gin.Context) {
	snap, err := h.store.GetMatch(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newMatchStateResponse(snap))
}

// SubmitMove applies a move and returns the updated board.
func (h *Handler) SubmitMove(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "bad_request", Message: err.Error()})
		return
	}

	snap, err := h.store.ApplyMove(c.Param("id"), req.DeviceID, *req.X, *req.Y)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, moveResponse{
		Board:       snap.Board,
		NextTurn:    turnField(snap),
		Winner:      winnerField(snap),
		WinningLine: snap.Line,
	})
}

// writeError maps domain errors to HTTP statuses and the stable error
// kinds clients branch on.
func writeError(c *gin.Context, err error) {
	var status int
	var kind string
	switch {
	case errors.Is(err, registry.ErrDeviceNotFound),
		errors.Is(err, arena.ErrMatchNotFound),
		errors.Is(err, arena.ErrNotWaiting):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, arena.ErrInvalidSize):
		status, kind = http.StatusBadRequest, "invalid_size"
	case errors.Is(err, arena.ErrAlreadyPending):
		status, kind = http.StatusConflict, "already_pending"
	case errors.Is(err, game.ErrForbidden):
		status, kind = http.StatusForbidden, "forbidden"
	case errors.Is(err, game.ErrNotYourTurn):
		status, kind = http.StatusConflict, "not_your_turn"
	case errors.Is(err, game.ErrAlreadyTerminal):
		status, kind = http.StatusConflict, "already_terminal"
	case errors.Is(err, game.ErrOutOfBounds):
		status, kind = http.StatusBadRequest, "out_of_bounds"
	case errors.Is(err, game.ErrCellOccupied):
		status, kind = http.StatusConflict, "cell_occupied"
	default:
		status, kind = http.StatusInternalServerError, "internal"
	}
	c.JSON(status, errorResponse{Error: kind, Message: err.Error()})
}

package api

import (
	"gridmatch-server/arena"
	"gridmatch-server/health"
	"gridmatch-server/metrics"
	"gridmatch-server/registry"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the HTTP surface: game routes, metrics and health.
func NewRouter(devices *registry.Registry, store *arena.Store) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	h := &Handler{devices: devices, store: store}

	r.POST("/devices", h.RegisterDevice)
	r.GET("/devices", h.ListDevices)
	r.GET("/devices/:id/info", h.DeviceInfo)

	r.POST("/matches", h.CreateMatch)
	r.GET("/matches/waiting-status", h.WaitingStatus)
	r.DELETE("/matches/waiting-status", h.CancelWaiting)
	r.GET("/matches/:id", h.GetMatch)
	r.POST("/matches/:id/moves", h.SubmitMove)

	metrics.Register(r)
	health.Register(r, func() bool { return devices != nil && store != nil })
	return r
}

package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MatchesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gridmatch_matches_created_total",
			Help: "Total matches created by pairing two waiting devices",
		},
	)

	MovesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridmatch_moves_total",
			Help: "Total move submissions",
		},
		[]string{"result"}, // accepted|rejected
	)

	DevicesSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gridmatch_devices_swept_total",
			Help: "Total idle devices removed by the registry sweep",
		},
	)

	ActiveMatches = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gridmatch_active_matches",
			Help: "Matches currently in progress",
		},
	)

	WaitingEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gridmatch_waiting_entries",
			Help: "Devices currently parked in the matchmaking queue",
		},
	)

	RegisteredDevices = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gridmatch_registered_devices",
			Help: "Devices currently known to the registry",
		},
	)

	MatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gridmatch_match_duration_seconds",
			Help:    "Duration from match creation to terminal state",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
	)
)

func init() {
	prometheus.MustRegister(MatchesCreated)
	prometheus.MustRegister(MovesTotal)
	prometheus.MustRegister(DevicesSwept)
	prometheus.MustRegister(ActiveMatches)
	prometheus.MustRegister(WaitingEntries)
	prometheus.MustRegister(RegisteredDevices)
	prometheus.MustRegister(MatchDuration)
}

func Register(r gin.IRouter) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

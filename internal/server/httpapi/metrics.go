package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess = "success"
	outcomeDenied  = "denied"
	outcomeError   = "error"
)

var (
	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authkeeper",
		Name:      "logins_total",
		Help:      "Login attempts by outcome.",
	}, []string{"outcome"})

	refreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authkeeper",
		Name:      "refreshes_total",
		Help:      "Refresh token rotations by outcome.",
	}, []string{"outcome"})

	logoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "authkeeper",
		Name:      "logouts_total",
		Help:      "Completed logout requests.",
	})
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Auth-related Prometheus metrics. Defined in a standalone package to avoid
// import cycles between service and HTTP packages.

var (
	AuthorizationCodesIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "doorman_authorization_codes_issued_total",
		Help: "Authorization codes emitidos",
	})

	TokenExchanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "doorman_token_exchanges_total",
		Help: "Intercambios de authorization code por outcome",
	}, []string{"outcome"}) // ok | invalid_grant | invalid_request | error

	CompatLogins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "doorman_compat_logins_total",
		Help: "Logins compat por outcome",
	}, []string{"outcome"}) // ok | unauthorized | unrecognized | rate_limited | error

	CompatLoginDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "doorman_compat_login_duration_ms",
		Help:    "Duración del login compat en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)

// Register registers the auth metrics on the given registry (or default if nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		AuthorizationCodesIssued,
		TokenExchanges,
		CompatLogins,
		CompatLoginDuration,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

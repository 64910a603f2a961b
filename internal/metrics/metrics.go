// Package metrics exposes the service's prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "linkvault"

// Resolution outcomes
const (
	OutcomeRedirect         = "redirect"
	OutcomePasswordRequired = "password_required"
	OutcomeNotFound         = "not_found"
	OutcomeExpired          = "expired"
	OutcomeInvalidPassword  = "invalid_password"
	OutcomeError            = "error"
)

// Metrics holds the service counters. A nil *Metrics records nothing.
type Metrics struct {
	linksCreated     prometheus.Counter
	linksDeleted     prometheus.Counter
	linksExpired     prometheus.Counter
	resolutions      *prometheus.CounterVec
	clicks           prometheus.Counter
	codeCollisions   prometheus.Counter
	exhaustedRetries prometheus.Counter
	cacheLookups     *prometheus.CounterVec
}

// New creates the counters and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		linksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_created_total",
			Help:      "Links created.",
		}),
		linksDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_deleted_total",
			Help:      "Links deleted by their owners.",
		}),
		linksExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_expired_total",
			Help:      "Links deactivated because their expiration date passed.",
		}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Code resolutions by outcome.",
		}, []string{"outcome"}),
		clicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clicks_total",
			Help:      "Clicks registered.",
		}),
		codeCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "code_collisions_total",
			Help:      "Generated short codes that were already taken.",
		}),
		exhaustedRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "code_generation_exhausted_total",
			Help:      "Link creations that ran out of code generation attempts.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Link cache lookups by result.",
		}, []string{"result"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.linksCreated,
			m.linksDeleted,
			m.linksExpired,
			m.resolutions,
			m.clicks,
			m.codeCollisions,
			m.exhaustedRetries,
			m.cacheLookups,
		)
	}

	return m
}

// LinkCreated counts a created link
func (m *Metrics) LinkCreated() {
	if m == nil {
		return
	}
	m.linksCreated.Inc()
}

// LinkDeleted counts a deleted link
func (m *Metrics) LinkDeleted() {
	if m == nil {
		return
	}
	m.linksDeleted.Inc()
}

// LinksExpired counts links deactivated on expiry
func (m *Metrics) LinksExpired(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.linksExpired.Add(float64(n))
}

// Resolution counts one resolution outcome
func (m *Metrics) Resolution(outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
}

// Click counts a registered click
func (m *Metrics) Click() {
	if m == nil {
		return
	}
	m.clicks.Inc()
}

// CodeCollision counts a taken generated code
func (m *Metrics) CodeCollision() {
	if m == nil {
		return
	}
	m.codeCollisions.Inc()
}

// ExhaustedRetries counts a creation that ran out of attempts
func (m *Metrics) ExhaustedRetries() {
	if m == nil {
		return
	}
	m.exhaustedRetries.Inc()
}

// CacheLookup counts a cache hit or miss
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/radieske/parlay-settlement/internal/settlement-service/engine"
)

// Settlement agrupa os coletores alimentados pelos callbacks da engine
type Settlement struct {
	Passes      *prometheus.CounterVec
	Slips       *prometheus.CounterVec
	LegsUpdated prometheus.Counter
	Errors      *prometheus.CounterVec
	Duration    prometheus.Histogram
}

func NewSettlement(reg prometheus.Registerer) *Settlement {
	m := &Settlement{
		Passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_passes_total", Help: "passadas de liquidação por resultado",
		}, []string{"result"}),
		Slips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_slips_total", Help: "bilhetes avaliados por desfecho",
		}, []string{"outcome"}),
		LegsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_legs_updated_total", Help: "pernas anotadas",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_errors_total", Help: "erros por estágio",
		}, []string{"stage"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "settlement_pass_duration_seconds",
			Help:    "duração de uma passada",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
	reg.MustRegister(m.Passes, m.Slips, m.LegsUpdated, m.Errors, m.Duration)
	return m
}

// ObservePass é o OnPass da engine
func (m *Settlement) ObservePass(s engine.Summary) {
	result := "ok"
	if s.Errors > 0 {
		result = "partial"
	}
	m.Passes.WithLabelValues(result).Inc()
	m.Slips.WithLabelValues("won").Add(float64(s.Won))
	m.Slips.WithLabelValues("lost").Add(float64(s.Lost))
	m.Slips.WithLabelValues("void").Add(float64(s.Void))
	m.Slips.WithLabelValues("pending").Add(float64(s.StillPending))
	m.Slips.WithLabelValues("already_settled").Add(float64(s.AlreadySettled))
	m.LegsUpdated.Add(float64(s.MatchesUpdated))
	m.Duration.Observe((time.Duration(s.DurationMs) * time.Millisecond).Seconds())
}

// ObserveError é o OnError da engine; falha de leitura conta também como passada falha
func (m *Settlement) ObserveError(stage string) {
	m.Errors.WithLabelValues(stage).Inc()
	if stage == "read_slips" || stage == "read_matches" {
		m.Passes.WithLabelValues("failed").Inc()
	}
}

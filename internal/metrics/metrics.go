// Package metrics exposes console and backend counters in Prometheus format.
package metrics

import (
	"errors"
	"net/http"

	"github.com/alanyoungcy/polyconsole/internal/domain"
	"github.com/alanyoungcy/polyconsole/internal/feed"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "polyconsole"

// Metrics holds every collector on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	frames          *prometheus.CounterVec
	handlerPanics   prometheus.Counter
	reconnects      prometheus.Counter
	connState       prometheus.Gauge
	commands        *prometheus.CounterVec
	tradeBoundaries prometheus.Counter
	balance         prometheus.Gauge
	pnlTotal        prometheus.Gauge

	backendTicks   prometheus.Counter
	backendClients prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_total",
				Help:      "Snapshot frames received, by result",
			},
			[]string{"result"},
		),
		handlerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_panics_total",
			Help:      "Snapshot handler panics recovered by the feed",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_total",
			Help:      "Scheduled reconnect attempts",
		}),
		connState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "0 disconnected, 1 connecting, 2 open",
		}),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Control commands dispatched, by command and outcome",
			},
			[]string{"command", "outcome"},
		),
		tradeBoundaries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trade_boundaries_total",
			Help:      "Closed trades observed through trade_seq changes",
		}),
		balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "balance_usd",
			Help:      "Balance from the last snapshot",
		}),
		pnlTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pnl_total_usd",
			Help:      "Total PnL from the last snapshot",
		}),
		backendTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "ticks_total",
			Help:      "Paper backend simulation ticks",
		}),
		backendClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "ws_clients",
			Help:      "Connected WebSocket clients",
		}),
	}

	m.reg.MustRegister(m.frames, m.handlerPanics, m.reconnects, m.connState)
	m.reg.MustRegister(m.commands, m.tradeBoundaries, m.balance, m.pnlTotal)
	m.reg.MustRegister(m.backendTicks, m.backendClients)
	m.reg.MustRegister(collectors.NewGoCollector())
	return m
}

// Handler serves the registry in the text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) FrameReceived()   { m.frames.WithLabelValues("received").Inc() }
func (m *Metrics) FrameMalformed()  { m.frames.WithLabelValues("malformed").Inc() }
func (m *Metrics) HandlerPanicked() { m.handlerPanics.Inc() }
func (m *Metrics) Reconnecting()    { m.reconnects.Inc() }

// ConnectionState records a feed state transition.
func (m *Metrics) ConnectionState(s feed.State) {
	m.connState.Set(float64(s))
}

// CommandDone counts one dispatched command by outcome.
func (m *Metrics) CommandDone(name string, err error) {
	m.commands.WithLabelValues(name, outcome(err)).Inc()
}

// Snapshot records the equity gauges and, when a trade closed, the boundary.
func (m *Metrics) Snapshot(snap domain.Snapshot, tradeClosed bool) {
	if snap.Balance.Valid {
		m.balance.Set(snap.Balance.Value)
	}
	if snap.PnL.Total.Valid {
		m.pnlTotal.Set(snap.PnL.Total.Value)
	}
	if tradeClosed {
		m.tradeBoundaries.Inc()
	}
}

// BackendTick counts one simulator tick.
func (m *Metrics) BackendTick() { m.backendTicks.Inc() }

// BackendClients sets the number of connected hub clients.
func (m *Metrics) BackendClients(n int) { m.backendClients.Set(float64(n)) }

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrCommandRejected):
		return "rejected"
	case errors.Is(err, domain.ErrCommandTransport):
		return "transport"
	case errors.Is(err, domain.ErrNotConfirmed):
		return "not_confirmed"
	default:
		return "error"
	}
}

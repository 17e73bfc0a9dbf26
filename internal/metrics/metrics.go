// Package metrics holds the Prometheus collectors for rooms and
// connections. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tsuro"

type Metrics struct {
	roomsActive   prometheus.Gauge
	connections   prometheus.Gauge
	commands      *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	broadcasts    prometheus.Counter
	slowConsumers prometheus.Counter
	gamesStarted  prometheus.Counter
	gamesFinished prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		roomsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Rooms currently held in memory.",
		}),
		connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Open websocket connections.",
		}),
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Client commands handled by rooms, by message type.",
		}, []string{"type"}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Errors sent back to clients, by kind.",
		}, []string{"kind"}),
		broadcasts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Messages fanned out to room subscribers.",
		}),
		slowConsumers: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slow_consumers_dropped_total",
			Help:      "Subscribers disconnected for falling behind.",
		}),
		gamesStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Games started.",
		}),
		gamesFinished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Games that reached game over.",
		}),
	}
}

func (m *Metrics) RoomOpened() {
	if m != nil {
		m.roomsActive.Inc()
	}
}

func (m *Metrics) RoomClosed() {
	if m != nil {
		m.roomsActive.Dec()
	}
}

func (m *Metrics) ConnOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) ConnClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) Command(msgType string) {
	if m != nil {
		m.commands.WithLabelValues(msgType).Inc()
	}
}

func (m *Metrics) Rejected(kind string) {
	if m != nil {
		m.rejections.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Broadcast(n int) {
	if m != nil {
		m.broadcasts.Add(float64(n))
	}
}

func (m *Metrics) SlowConsumer() {
	if m != nil {
		m.slowConsumers.Inc()
	}
}

func (m *Metrics) GameStarted() {
	if m != nil {
		m.gamesStarted.Inc()
	}
}

func (m *Metrics) GameFinished() {
	if m != nil {
		m.gamesFinished.Inc()
	}
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "syncwatch"

// Recorder holds service collectors.
type Recorder struct {
	reg              *prometheus.Registry
	roomsActive      prometheus.Gauge
	channelsOpen     prometheus.Gauge
	actions          *prometheus.CounterVec
	graceExpirations prometheus.Counter
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		roomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Number of live rooms.",
		}),
		channelsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channels_open",
			Help:      "Number of registered event channels.",
		}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Action requests handled by session service.",
		}, []string{"action", "result"}),
		graceExpirations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grace_expirations_total",
			Help:      "Members removed after reconnection grace period expired.",
		}),
	}
	r.reg.MustRegister(
		r.roomsActive,
		r.channelsOpen,
		r.actions,
		r.graceExpirations,
		prometheus.NewGoCollector(),
	)
	return r
}

func (r *Recorder) SetRooms(n int) { r.roomsActive.Set(float64(n)) }

func (r *Recorder) SetChannels(n int) { r.channelsOpen.Set(float64(n)) }

func (r *Recorder) Action(action, result string) {
	r.actions.WithLabelValues(action, result).Inc()
}

func (r *Recorder) GraceExpired() { r.graceExpirations.Inc() }

// Handler exposes collectors in Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

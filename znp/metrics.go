package znp

import "github.com/prometheus/client_golang/prometheus"

// Metrics is an optional set of Prometheus collectors a Mediator
// records dispatch/request/waiter activity into. A nil *Metrics is
// valid everywhere it's used (every method below is a nil-receiver
// no-op), so WithMetrics is opt-in. Grounded on the AppMetrics/
// NewRegistry pattern used for the coordinator's own instrumentation.
type Metrics struct {
	framesDispatched  *prometheus.CounterVec
	pendingHandlers   prometheus.Gauge
	rpcErrorsTotal    prometheus.Counter
	waiterTimeouts    prometheus.Counter
}

// NewMetrics registers a fresh set of collectors on reg and returns the
// Metrics wrapper to pass to WithMetrics. Panics if reg already has
// conflicting collectors registered, consistent with
// prometheus.MustRegister's usual behavior.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		framesDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "znp",
			Name:      "frames_dispatched_total",
			Help:      "Inbound frames delivered to the mediator, labeled by whether a handler claimed them.",
		}, []string{"claimed"}),
		pendingHandlers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "znp",
			Name:      "pending_handlers",
			Help:      "Current length of the mediator's handler list.",
		}),
		rpcErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "znp",
			Name:      "rpc_errors_total",
			Help:      "SendSREQ calls that completed with an out-of-band RPC_Error frame.",
		}),
		waiterTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "znp",
			Name:      "waiter_timeouts_total",
			Help:      "WaitFor/WaitAfter calls that expired before a matching frame arrived.",
		}),
	}
	reg.MustRegister(m.framesDispatched, m.pendingHandlers, m.rpcErrorsTotal, m.waiterTimeouts)
	return m
}

func (m *Metrics) observeDispatch(claimed bool) {
	if m == nil {
		return
	}
	label := "false"
	if claimed {
		label = "true"
	}
	m.framesDispatched.WithLabelValues(label).Inc()
}

func (m *Metrics) setPendingHandlers(n int) {
	if m == nil {
		return
	}
	m.pendingHandlers.Set(float64(n))
}

func (m *Metrics) incRPCErrors() {
	if m == nil {
		return
	}
	m.rpcErrorsTotal.Inc()
}

func (m *Metrics) incWaiterTimeouts() {
	if m == nil {
		return
	}
	m.waiterTimeouts.Inc()
}

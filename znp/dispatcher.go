package znp

import (
	"sync"

	"github.com/rs/zerolog"
)

// Mediator is the API mediator: the single long-lived object that owns
// the handler list, walks it for every inbound frame, and exposes the
// request tracker (SendSREQ), timed waiter (WaitFor/WaitAfter), event
// router and state-wait helper built on top of it.
//
// The handler list is logically owned by a single dispatch loop per
// spec.md §5 ("single-threaded cooperative"); Deliver snapshots the
// list under mu before walking it so that concurrent registration from
// SendSREQ/WaitFor (called from arbitrary caller goroutines) never
// races with the walk, while still giving each dispatch a consistent
// view matching the single-threaded model's ordering guarantees.
type Mediator struct {
	raw    RawTransport
	log    zerolog.Logger
	metric *Metrics

	mu       sync.Mutex
	handlers []frameHandler

	events *eventRouter
}

// Option configures a Mediator at construction time.
type Option func(*Mediator)

// WithLogger attaches a zerolog.Logger. The default is zerolog.Nop().
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Mediator) { m.log = logger }
}

// WithMetrics attaches a Metrics recorder. Without this option the
// mediator records nothing; all Metrics methods are nil-receiver safe.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Mediator) { m.metric = metrics }
}

// NewMediator constructs a Mediator over raw and installs the
// permanent event-router handlers described in spec.md §6's event
// table. raw.SendFrame is the only outbound path every operation uses.
func NewMediator(raw RawTransport, opts ...Option) *Mediator {
	m := &Mediator{
		raw: raw,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.events = newEventRouter(m)
	m.events.installDefaultHandlers()
	return m
}

// Deliver is invoked for every inbound frame from the raw layer. It
// walks the handler list in insertion order, invoking each handler
// exactly once; a handler claiming the frame (stopProcessing) stops
// the walk, and a handler that asks to be removed is spliced out
// afterwards. Handlers appended during this call (directly, or via a
// chained continuation such as WaitAfter's antecedent firing) do not
// see the frame that triggered them, since the walk operates over a
// snapshot taken before the first handler runs.
func (m *Mediator) Deliver(frame Frame) {
	m.mu.Lock()
	snapshot := make([]frameHandler, len(m.handlers))
	copy(snapshot, m.handlers)
	m.mu.Unlock()

	claimed := false
	for _, h := range snapshot {
		action := h.onFrame(frame)
		if action.removeMe {
			m.removeHandler(h)
		}
		if action.stopProcessing {
			claimed = true
			break
		}
	}

	m.metric.observeDispatch(claimed)
	if !claimed {
		m.log.Debug().Stringer("frame", frame).Msg("unhandled ZNP frame")
	}
}

// addHandler appends a handler at the tail of the list, per spec.md
// §4.1's ordering guarantee: event handlers are installed first (at
// construction), so per-call handlers registered later always sit
// behind them.
func (m *Mediator) addHandler(h frameHandler) {
	m.mu.Lock()
	m.handlers = append(m.handlers, h)
	n := len(m.handlers)
	m.mu.Unlock()
	m.metric.setPendingHandlers(n)
}

func (m *Mediator) removeHandler(h frameHandler) {
	m.mu.Lock()
	for idx, cur := range m.handlers {
		if cur == h {
			m.handlers = append(m.handlers[:idx], m.handlers[idx+1:]...)
			break
		}
	}
	n := len(m.handlers)
	m.mu.Unlock()
	m.metric.setPendingHandlers(n)
}

// PendingHandlerCount reports the current handler-list length,
// including the permanent event-router entries. Useful for the
// httpapi status endpoint.
func (m *Mediator) PendingHandlerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

func (m *Mediator) sendFrame(frame Frame) error {
	if err := m.raw.SendFrame(frame); err != nil {
		return &TransportError{Err: err}
	}
	return nil
}

package znp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler appends every frame it sees and reports a fixed
// action, so tests can assert both ordering and claim behavior.
type recordingHandler struct {
	seen   []Frame
	action frameAction
}

func (h *recordingHandler) onFrame(frame Frame) frameAction {
	h.seen = append(h.seen, frame)
	return h.action
}

func TestDeliverVisitsHandlersInInsertionOrder(t *testing.T) {
	m, _ := newTestMediator()

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		m.addHandler(handlerFunc(func(frame Frame) frameAction {
			order = append(order, i)
			return frameAction{}
		}))
	}

	m.Deliver(Frame{Type: FrameTypeAREQ, Command: Command{Subsystem: SubsystemSYS, ID: 0x99}})

	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestDeliverStopsAtFirstClaimingHandler(t *testing.T) {
	m, _ := newTestMediator()

	first := &recordingHandler{action: frameAction{stopProcessing: true}}
	second := &recordingHandler{}
	m.addHandler(first)
	m.addHandler(second)

	frame := Frame{Type: FrameTypeAREQ, Command: Command{Subsystem: SubsystemSYS, ID: 0x99}}
	m.Deliver(frame)

	assert.Len(t, first.seen, 1)
	assert.Empty(t, second.seen, "a claimed frame must not reach handlers after the claimant")
}

func TestDeliverRemovesHandlersThatAskToBeRemoved(t *testing.T) {
	m, _ := newTestMediator()

	removed := &recordingHandler{action: frameAction{removeMe: true}}
	m.addHandler(removed)

	before := m.PendingHandlerCount()
	require.GreaterOrEqual(t, before, 1)

	frame := Frame{Type: FrameTypeAREQ, Command: Command{Subsystem: SubsystemSYS, ID: 0x99}}
	m.Deliver(frame)
	m.Deliver(frame)

	assert.Len(t, removed.seen, 1, "a removed handler must not be invoked on later frames")
	assert.Equal(t, before-1, m.PendingHandlerCount())
}

func TestDeliverHandlerAppendedDuringDispatchDoesNotSeeTriggeringFrame(t *testing.T) {
	m, _ := newTestMediator()

	late := &recordingHandler{}
	installer := handlerFunc(func(frame Frame) frameAction {
		m.addHandler(late)
		return frameAction{}
	})
	m.addHandler(installer)

	frame := Frame{Type: FrameTypeAREQ, Command: Command{Subsystem: SubsystemSYS, ID: 0x99}}
	m.Deliver(frame)
	assert.Empty(t, late.seen, "a handler installed mid-dispatch must not see the frame that triggered its installation")

	m.Deliver(frame)
	assert.Len(t, late.seen, 1, "but it must see the next one")
}

func TestPendingHandlerCountIncludesPermanentEventHandlers(t *testing.T) {
	m, _ := newTestMediator()
	// installDefaultHandlers runs at construction; the 7 event
	// handlers should already be registered before any per-call
	// handler is added.
	assert.Equal(t, 7, m.PendingHandlerCount())
}

package znp

import (
	"sync"
	"time"
)

// waiter is the handler+timer pair behind WaitFor: it claims a frame
// matching (type, command) whose payload starts with prefix, and
// completes with a timeout if its timer fires first. active mediates
// the race: whichever of {match, timer} happens first flips it to
// false; the other is a no-op, per spec.md §4.3.
type waiter struct {
	frameType FrameType
	command   Command
	prefix    []byte

	result chan requestResult

	mu     sync.Mutex
	active bool
	timer  *time.Timer
}

func (w *waiter) onFrame(frame Frame) frameAction {
	w.mu.Lock()
	if !w.active {
		w.mu.Unlock()
		return frameAction{removeMe: true}
	}

	if frame.Type != w.frameType || frame.Command != w.command {
		w.mu.Unlock()
		return frameAction{}
	}
	if len(frame.Payload) < len(w.prefix) {
		w.mu.Unlock()
		return frameAction{}
	}
	for i, b := range w.prefix {
		if frame.Payload[i] != b {
			w.mu.Unlock()
			return frameAction{}
		}
	}

	w.active = false
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	var value []byte
	if len(w.prefix) == 0 {
		value = frame.Payload
	} else {
		value = frame.Payload[len(w.prefix):]
	}
	w.complete(value, nil)
	return frameAction{stopProcessing: true, removeMe: true}
}

func (w *waiter) complete(payload []byte, err error) {
	select {
	case w.result <- requestResult{payload: payload, err: err}:
	default:
	}
}

func (w *waiter) fireTimeout() {
	w.mu.Lock()
	if !w.active {
		w.mu.Unlock()
		return
	}
	w.active = false
	w.mu.Unlock()
	w.complete(nil, ErrTimeout)
}

// WaitFor installs a handler that claims the first frame of type/command
// whose payload starts with prefix, and blocks the caller until it is
// claimed or timeoutSeconds elapses. When prefix is non-empty the
// result is the payload with the prefix stripped; when prefix is
// empty, the result is the whole payload (the asymmetry is preserved
// from the ZNP reference implementation). timeoutSeconds <= 0 installs
// the handler with no timer: it remains until matched.
func (m *Mediator) WaitFor(frameType FrameType, command Command, timeoutSeconds float64, prefix []byte) ([]byte, error) {
	w := &waiter{
		frameType: frameType,
		command:   command,
		prefix:    prefix,
		result:    make(chan requestResult, 1),
		active:    true,
	}
	m.addHandler(w)

	if timeoutSeconds > 0 {
		w.timer = time.AfterFunc(time.Duration(timeoutSeconds*float64(time.Second)), func() {
			m.metric.incWaiterTimeouts()
			w.fireTimeout()
		})
	}

	res := <-w.result
	return res.payload, res.err
}

// WaitAfter only installs the WaitFor handler once first completes
// successfully, so AREQ follow-ups arriving immediately after an
// SREQ's SRSP are caught without a race window, and the waiter is
// never armed if first failed. first is typically the error returned
// by a preceding SendSREQ/CheckOnlyStatus call.
func (m *Mediator) WaitAfter(first error, frameType FrameType, command Command, timeoutSeconds float64, prefix []byte) ([]byte, error) {
	if first != nil {
		return nil, first
	}
	return m.WaitFor(frameType, command, timeoutSeconds, prefix)
}

package znp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForMatchesPrefixAndStripsIt(t *testing.T) {
	m, _ := newTestMediator()
	command := Command{Subsystem: SubsystemAF, ID: 0x80}

	ch := make(chan []byte, 1)
	errCh := make(chan error, 1)
	go func() {
		payload, err := m.WaitFor(FrameTypeAREQ, command, 1, []byte{0x01, 0x02})
		ch <- payload
		errCh <- err
	}()

	require.Eventually(t, func() bool { return m.PendingHandlerCount() > 7 }, time.Second, time.Millisecond)
	m.Deliver(Frame{Type: FrameTypeAREQ, Command: command, Payload: []byte{0x01, 0x02, 0xFF, 0xEE}})

	require.NoError(t, <-errCh)
	assert.Equal(t, []byte{0xFF, 0xEE}, <-ch)
}

func TestWaitForIgnoresNonMatchingPrefix(t *testing.T) {
	m, _ := newTestMediator()
	command := Command{Subsystem: SubsystemAF, ID: 0x80}

	resultCh := make(chan requestResult, 1)
	go func() {
		payload, err := m.WaitFor(FrameTypeAREQ, command, 1, []byte{0x01, 0x02})
		resultCh <- requestResult{payload: payload, err: err}
	}()

	require.Eventually(t, func() bool { return m.PendingHandlerCount() > 7 }, time.Second, time.Millisecond)

	// Wrong prefix: ignored, waiter stays installed.
	m.Deliver(Frame{Type: FrameTypeAREQ, Command: command, Payload: []byte{0x09, 0x09}})
	select {
	case res := <-resultCh:
		t.Fatalf("waiter resolved on a non-matching prefix: %+v", res)
	case <-time.After(50 * time.Millisecond):
	}

	// Matching frame arrives within the timeout window and resolves it.
	m.Deliver(Frame{Type: FrameTypeAREQ, Command: command, Payload: []byte{0x01, 0x02, 0x55}})
	res := <-resultCh
	require.NoError(t, res.err)
	assert.Equal(t, []byte{0x55}, res.payload)
}

func TestWaitForTimesOutWhenNothingMatches(t *testing.T) {
	m, _ := newTestMediator()
	command := Command{Subsystem: SubsystemAF, ID: 0x80}

	start := time.Now()
	payload, err := m.WaitFor(FrameTypeAREQ, command, 0.05, nil)
	elapsed := time.Since(start)

	assert.Nil(t, payload)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestWaitAfterDoesNotArmWhenFirstFailed(t *testing.T) {
	m, _ := newTestMediator()
	command := Command{Subsystem: SubsystemAF, ID: 0x80}

	before := m.PendingHandlerCount()
	payload, err := m.WaitAfter(ErrTimeout, FrameTypeAREQ, command, 1, nil)

	assert.Nil(t, payload)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, before, m.PendingHandlerCount(), "WaitAfter must not install a handler when first failed")
}

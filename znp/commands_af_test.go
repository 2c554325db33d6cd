package znp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAfDataRequestSucceedsOnMatchingConfirm(t *testing.T) {
	m, _ := newTestMediator()

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.AfDataRequest(DataRequest{DstAddr: 0x1234, DstEP: 1, SrcEP: 1, TransID: 7})
	}()

	require.Eventually(t, func() bool { return m.PendingHandlerCount() > 7 }, time.Second, time.Millisecond)
	m.Deliver(Frame{Type: FrameTypeSRSP, Command: cmdAfDataRequest, Payload: []byte{0x00}})

	require.Eventually(t, func() bool { return m.PendingHandlerCount() > 7 }, time.Second, time.Millisecond)
	m.Deliver(Frame{Type: FrameTypeAREQ, Command: commandAfDataConfirm, Payload: []byte{0x00, 0x01, 0x07}})

	require.NoError(t, <-errCh)
}

func TestAfDataRequestRejectsMismatchedConfirm(t *testing.T) {
	m, _ := newTestMediator()

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.AfDataRequest(DataRequest{DstAddr: 0x1234, DstEP: 1, SrcEP: 1, TransID: 7})
	}()

	require.Eventually(t, func() bool { return m.PendingHandlerCount() > 7 }, time.Second, time.Millisecond)
	m.Deliver(Frame{Type: FrameTypeSRSP, Command: cmdAfDataRequest, Payload: []byte{0x00}})

	require.Eventually(t, func() bool { return m.PendingHandlerCount() > 7 }, time.Second, time.Millisecond)
	// A confirm for a different endpoint/trans_id claims the waiter
	// (documented cross-matching weakness) but is then rejected by the
	// hand-checked endpoint/trans_id comparison.
	m.Deliver(Frame{Type: FrameTypeAREQ, Command: commandAfDataConfirm, Payload: []byte{0x00, 0x02, 0x09}})

	err := <-errCh
	require.Error(t, err)
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
}

func TestAfDataRequestFailsOnRejectStatus(t *testing.T) {
	m, _ := newTestMediator()

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.AfDataRequest(DataRequest{DstAddr: 0x1234, DstEP: 1, SrcEP: 1, TransID: 3})
	}()

	require.Eventually(t, func() bool { return m.PendingHandlerCount() > 7 }, time.Second, time.Millisecond)
	m.Deliver(Frame{Type: FrameTypeSRSP, Command: cmdAfDataRequest, Payload: []byte{0x01}})

	err := <-errCh
	require.Error(t, err)
	var statusErr *ZnpStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, uint8(0x01), statusErr.Code)
}

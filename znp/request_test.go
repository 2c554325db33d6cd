package znp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sendSREQAsync(m *Mediator, command Command, payload []byte) <-chan requestResult {
	done := make(chan requestResult, 1)
	go func() {
		resp, err := m.SendSREQ(command, payload)
		done <- requestResult{payload: resp, err: err}
	}()
	return done
}

// waitResult blocks on ch for up to a second, failing the test on
// timeout rather than hanging the suite forever if a correlation bug
// regresses.
func waitResult(t *testing.T, ch <-chan requestResult) requestResult {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for SendSREQ to complete")
		return requestResult{}
	}
}

func TestSendSREQCompletesOnMatchingSRSP(t *testing.T) {
	m, raw := newTestMediator()
	command := Command{Subsystem: SubsystemSYS, ID: 0x01}

	ch := sendSREQAsync(m, command, []byte{0xAA})

	require.Eventually(t, func() bool { return len(raw.sent()) == 1 }, time.Second, time.Millisecond)
	m.Deliver(Frame{Type: FrameTypeSRSP, Command: command, Payload: []byte{0x12, 0x34}})

	res := waitResult(t, ch)
	require.NoError(t, res.err)
	assert.Equal(t, []byte{0x12, 0x34}, res.payload)
}

func TestSendSREQSurfacesStatusError(t *testing.T) {
	m, _ := newTestMediator()
	command := Command{Subsystem: SubsystemSAPI, ID: 0x05}

	ch := sendSREQAsync(m, command, nil)
	require.Eventually(t, func() bool { return m.PendingHandlerCount() > 7 }, time.Second, time.Millisecond)
	m.Deliver(Frame{Type: FrameTypeSRSP, Command: command, Payload: []byte{0x01}})

	res := waitResult(t, ch)
	resp, err := CheckStatus(res.payload)
	require.Error(t, err)
	assert.Nil(t, resp)
	var statusErr *ZnpStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, uint8(0x01), statusErr.Code)
}

func TestSendSREQCorrelatesRPCError(t *testing.T) {
	m, _ := newTestMediator()
	command := Command{Subsystem: SubsystemZDO, ID: 0x21}

	ch := sendSREQAsync(m, command, nil)
	require.Eventually(t, func() bool { return m.PendingHandlerCount() > 7 }, time.Second, time.Millisecond)

	// RPC_Error payload: [error_code, (type<<4)|subsystem, id]
	packed := uint8(FrameTypeSREQ)<<4 | uint8(SubsystemZDO)
	m.Deliver(Frame{Type: FrameTypeSRSP, Command: rpcErrorCommand, Payload: []byte{0x02, packed, 0x21}})

	res := waitResult(t, ch)
	require.Error(t, res.err)
	var rpcErr *RPCError
	require.ErrorAs(t, res.err, &rpcErr)
	assert.Equal(t, uint8(0x02), rpcErr.Code)
}

func TestUnrelatedRPCErrorDoesNotClaimRequest(t *testing.T) {
	m, _ := newTestMediator()
	command := Command{Subsystem: SubsystemZDO, ID: 0x21}

	ch := sendSREQAsync(m, command, nil)

	// RPC_Error naming a different command must be left unclaimed.
	packed := uint8(FrameTypeSREQ)<<4 | uint8(SubsystemZDO)
	m.Deliver(Frame{Type: FrameTypeSRSP, Command: rpcErrorCommand, Payload: []byte{0x07, packed, 0x22}})

	select {
	case res := <-ch:
		t.Fatalf("SendSREQ completed on an unrelated RPC_Error: %+v", res)
	case <-time.After(50 * time.Millisecond):
	}

	// The real SRSP still completes it afterwards.
	m.Deliver(Frame{Type: FrameTypeSRSP, Command: command, Payload: []byte{0x00}})
	res := waitResult(t, ch)
	require.NoError(t, res.err)
}

func TestConcurrentSendSREQFirstRegisteredWins(t *testing.T) {
	m, _ := newTestMediator()
	command := Command{Subsystem: SubsystemSYS, ID: 0x01}

	first := sendSREQAsync(m, command, nil)
	require.Eventually(t, func() bool { return m.PendingHandlerCount() > 7 }, time.Second, time.Millisecond)
	second := sendSREQAsync(m, command, nil)
	require.Eventually(t, func() bool { return m.PendingHandlerCount() > 8 }, time.Second, time.Millisecond)

	m.Deliver(Frame{Type: FrameTypeSRSP, Command: command, Payload: []byte{0x01}})

	res := waitResult(t, first)
	assert.Equal(t, []byte{0x01}, res.payload)

	// second is still pending; a later SRSP claims it.
	m.Deliver(Frame{Type: FrameTypeSRSP, Command: command, Payload: []byte{0x02}})
	res2 := waitResult(t, second)
	assert.Equal(t, []byte{0x02}, res2.payload)
}

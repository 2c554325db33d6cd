package znp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnResetFansOutToSubscribersInRegistrationOrder(t *testing.T) {
	m, _ := newTestMediator()

	var order []int
	var got []ResetInfo
	for i := 0; i < 3; i++ {
		i := i
		m.OnReset(func(info ResetInfo) {
			order = append(order, i)
			got = append(got, info)
		})
	}

	payload := []byte{0x02, 0x01, 0x02, 0x02, 0x07, 0x01}
	m.Deliver(Frame{Type: FrameTypeAREQ, Command: commandSysResetInd, Payload: payload})

	assert.Equal(t, []int{0, 1, 2}, order)
	require.Len(t, got, 3)
	assert.Equal(t, uint8(0x02), got[0].Reason)
	assert.Equal(t, uint8(0x07), got[0].MinorRel)
}

func TestEventHandlerClaimsFrameOnSuccessfulDecode(t *testing.T) {
	m, _ := newTestMediator()

	trailing := &recordingHandler{}
	m.addHandler(trailing)

	payload := []byte{0x02, 0x01, 0x02, 0x02, 0x07, 0x01}
	m.Deliver(Frame{Type: FrameTypeAREQ, Command: commandSysResetInd, Payload: payload})

	assert.Empty(t, trailing.seen, "a decoded event claims the frame; handlers behind it must not see it")
}

func TestEventHandlerLeavesMalformedFrameUnclaimed(t *testing.T) {
	m, _ := newTestMediator()

	trailing := &recordingHandler{}
	m.addHandler(trailing)

	// SYS_RESET_IND needs 6 bytes; this is short.
	m.Deliver(Frame{Type: FrameTypeAREQ, Command: commandSysResetInd, Payload: []byte{0x01}})

	assert.Len(t, trailing.seen, 1, "a malformed event payload must be left unclaimed for diagnostic handlers")
}

func TestOnStateChangeDecodesSingleByte(t *testing.T) {
	m, _ := newTestMediator()

	got := make(chan DeviceState, 1)
	m.OnStateChange(func(s DeviceState) { got <- s })

	m.Deliver(Frame{Type: FrameTypeAREQ, Command: commandZdoStateChangeInd, Payload: []byte{byte(DeviceStateZbCoord)}})

	select {
	case s := <-got:
		assert.Equal(t, DeviceStateZbCoord, s)
	case <-time.After(time.Second):
		t.Fatal("state change was never delivered")
	}
}

func TestOnIncomingMsgAllowsPartialTrailingData(t *testing.T) {
	m, _ := newTestMediator()

	got := make(chan IncomingMsg, 1)
	m.OnIncomingMsg(func(msg IncomingMsg) { got <- msg })

	payload := []byte{
		0x00, 0x00, // GroupID
		0x34, 0x12, // ClusterID
		0x78, 0x56, // SrcAddr
		0x01,       // SrcEndpoint
		0x02,       // DstEndpoint
		0x00,       // WasBroadcast
		0xFE,       // LinkQuality
		0x00,       // SecurityUse
		0x01, 0x00, 0x00, 0x00, // TimeStamp
		0x09, // TransSeqNumber
		0x03, // Data len
		0xAA, 0xBB, 0xCC,
		0x00, 0x00, 0x1E, // trailing bytes beyond the decoded structure
	}
	m.Deliver(Frame{Type: FrameTypeAREQ, Command: commandAfIncomingMsg, Payload: payload})

	select {
	case msg := <-got:
		assert.Equal(t, uint16(0x1234), msg.ClusterID)
		assert.Equal(t, []byte{0xAA, 0xBB, 0xCC}, msg.Data)
	case <-time.After(time.Second):
		t.Fatal("incoming msg was never delivered")
	}
}

func TestUnsubscribeStopsFurtherDelivery(t *testing.T) {
	m, _ := newTestMediator()

	calls := 0
	unsubscribe := m.OnPermitJoin(func(uint8) { calls++ })

	m.Deliver(Frame{Type: FrameTypeAREQ, Command: commandZdoPermitJoinInd, Payload: []byte{0x01}})
	unsubscribe()
	m.Deliver(Frame{Type: FrameTypeAREQ, Command: commandZdoPermitJoinInd, Payload: []byte{0x01}})

	assert.Equal(t, 1, calls)
}

package znp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deviceInfoPayload builds the SAPI_GET_DEVICE_INFO SRSP for a
// DeviceInfoState query: the echoed selector followed by the state
// byte, as currentDeviceState expects.
func deviceInfoPayload(state DeviceState) []byte {
	return []byte{byte(DeviceInfoState), byte(state)}
}

func TestWaitForStateReturnsImmediatelyWhenAlreadyInEndState(t *testing.T) {
	m, _ := newTestMediator()

	go func() {
		require.Eventually(t, func() bool { return m.PendingHandlerCount() > 7 }, time.Second, time.Millisecond)
		m.Deliver(Frame{Type: FrameTypeSRSP, Command: cmdSapiGetDeviceInfo, Payload: deviceInfoPayload(DeviceStateZbCoord)})
	}()

	state, err := m.WaitForState(
		[]DeviceState{DeviceStateZbCoord, DeviceStateRouter},
		[]DeviceState{DeviceStateHold, DeviceStateInit, DeviceStateZbCoord, DeviceStateRouter},
	)
	require.NoError(t, err)
	assert.Equal(t, DeviceStateZbCoord, state)
}

func TestWaitForStateFailsImmediatelyWhenCurrentStateDisallowed(t *testing.T) {
	m, _ := newTestMediator()

	go func() {
		require.Eventually(t, func() bool { return m.PendingHandlerCount() > 7 }, time.Second, time.Millisecond)
		m.Deliver(Frame{Type: FrameTypeSRSP, Command: cmdSapiGetDeviceInfo, Payload: deviceInfoPayload(DeviceStateNwkOrphan)})
	}()

	state, err := m.WaitForState(
		[]DeviceState{DeviceStateZbCoord},
		[]DeviceState{DeviceStateHold, DeviceStateInit, DeviceStateNwkJoining, DeviceStateZbCoord},
	)
	require.Error(t, err)
	var invalid *InvalidState
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, DeviceStateNwkOrphan, invalid.State)
	assert.Equal(t, DeviceStateNwkOrphan, state)
}

func TestWaitForStateFollowsTransitionsToEndState(t *testing.T) {
	m, _ := newTestMediator()

	go func() {
		require.Eventually(t, func() bool { return m.PendingHandlerCount() > 7 }, time.Second, time.Millisecond)
		m.Deliver(Frame{Type: FrameTypeSRSP, Command: cmdSapiGetDeviceInfo, Payload: deviceInfoPayload(DeviceStateHold)})

		// currentDeviceState resolved: WaitForState now registers its
		// state-change subscription before blocking. Wait for that
		// registration so the transitions below aren't delivered into
		// a gap between the SRSP and the subscribe call.
		require.Eventually(t, func() bool { return m.events.stateChange.count() > 0 }, time.Second, time.Millisecond)

		for _, s := range []DeviceState{DeviceStateInit, DeviceStateNwkJoining, DeviceStateZbCoord} {
			m.Deliver(Frame{Type: FrameTypeAREQ, Command: commandZdoStateChangeInd, Payload: []byte{byte(s)}})
		}
	}()

	state, err := m.WaitForState(
		[]DeviceState{DeviceStateZbCoord, DeviceStateRouter, DeviceStateEndDevice},
		[]DeviceState{
			DeviceStateHold, DeviceStateInit, DeviceStateNwkDisc, DeviceStateNwkJoining,
			DeviceStateNwkRejoin, DeviceStateCoordStarting, DeviceStateZbCoord,
			DeviceStateRouter, DeviceStateEndDevice,
		},
	)
	require.NoError(t, err)
	assert.Equal(t, DeviceStateZbCoord, state)
}

func TestWaitForStateFailsOnTransitionToOrphan(t *testing.T) {
	m, _ := newTestMediator()

	go func() {
		require.Eventually(t, func() bool { return m.PendingHandlerCount() > 7 }, time.Second, time.Millisecond)
		m.Deliver(Frame{Type: FrameTypeSRSP, Command: cmdSapiGetDeviceInfo, Payload: deviceInfoPayload(DeviceStateNwkJoining)})

		require.Eventually(t, func() bool { return m.events.stateChange.count() > 0 }, time.Second, time.Millisecond)
		m.Deliver(Frame{Type: FrameTypeAREQ, Command: commandZdoStateChangeInd, Payload: []byte{byte(DeviceStateNwkOrphan)}})
	}()

	_, err := m.WaitForState(
		[]DeviceState{DeviceStateZbCoord},
		[]DeviceState{DeviceStateHold, DeviceStateInit, DeviceStateNwkJoining, DeviceStateZbCoord},
	)
	require.Error(t, err)
	var invalid *InvalidState
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, DeviceStateNwkOrphan, invalid.State)
}

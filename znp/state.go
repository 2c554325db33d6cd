package znp

// DeviceState mirrors the ZDO_STATE_CHANGE_IND device-state values the
// coordinator firmware reports, from znp.h's DeviceState enum.
type DeviceState byte

const (
	DeviceStateHold             DeviceState = 0
	DeviceStateInit             DeviceState = 1
	DeviceStateNwkDisc          DeviceState = 2
	DeviceStateNwkJoining       DeviceState = 3
	DeviceStateNwkRejoin        DeviceState = 4
	DeviceStateEndDeviceUnauth  DeviceState = 5
	DeviceStateEndDevice        DeviceState = 6
	DeviceStateRouter           DeviceState = 7
	DeviceStateCoordStarting    DeviceState = 8
	DeviceStateZbCoord          DeviceState = 9
	DeviceStateNwkOrphan        DeviceState = 10
)

func (s DeviceState) String() string {
	switch s {
	case DeviceStateHold:
		return "HOLD"
	case DeviceStateInit:
		return "INIT"
	case DeviceStateNwkDisc:
		return "NWK_DISC"
	case DeviceStateNwkJoining:
		return "NWK_JOINING"
	case DeviceStateNwkRejoin:
		return "NWK_REJOIN"
	case DeviceStateEndDeviceUnauth:
		return "END_DEVICE_UNAUTH"
	case DeviceStateEndDevice:
		return "END_DEVICE"
	case DeviceStateRouter:
		return "ROUTER"
	case DeviceStateCoordStarting:
		return "COORD_STARTING"
	case DeviceStateZbCoord:
		return "ZB_COORD"
	case DeviceStateNwkOrphan:
		return "NWK_ORPHAN"
	default:
		return "UNKNOWN_STATE"
	}
}

// stateWaiter is the handler installed by WaitForState: it watches the
// zdo_state_change event stream (by subscribing like any other event
// consumer, not by sitting in the main handler list) and completes as
// soon as a reported state lands in either endStates or, failing that,
// falls outside allowedStates.
type stateWaiter struct {
	endStates    map[DeviceState]struct{}
	allowedSet   map[DeviceState]struct{}
	result       chan stateResult
}

type stateResult struct {
	state DeviceState
	err   error
}

func newStateSet(states []DeviceState) map[DeviceState]struct{} {
	set := make(map[DeviceState]struct{}, len(states))
	for _, s := range states {
		set[s] = struct{}{}
	}
	return set
}

// WaitForState queries the device's current state via
// SapiGetDeviceInfo; if it already lands in endStates it returns
// immediately, if it's outside allowedStates it fails with
// InvalidState immediately, and otherwise it subscribes to the
// state-change event stream and applies the same two checks to every
// reported transition until one of them fires. The subscription
// disconnects itself on completion, per znp_api.cpp's WaitForState. An
// empty allowedStates means "any state not in endStates is still
// allowed", for callers that only care about reaching one corridor and
// don't track a "gone wrong" set.
func (m *Mediator) WaitForState(endStates, allowedStates []DeviceState) (DeviceState, error) {
	sw := &stateWaiter{
		endStates:  newStateSet(endStates),
		allowedSet: newStateSet(allowedStates),
		result:     make(chan stateResult, 1),
	}

	current, err := m.currentDeviceState()
	if err != nil {
		return 0, err
	}
	if _, ok := sw.endStates[current]; ok {
		return current, nil
	}
	if len(sw.allowedSet) > 0 {
		if _, ok := sw.allowedSet[current]; !ok {
			return current, &InvalidState{State: current}
		}
	}

	unsubscribe := m.events.subscribeStateChange(func(state DeviceState) {
		if _, ok := sw.endStates[state]; ok {
			sw.complete(state, nil)
			return
		}
		if len(sw.allowedSet) > 0 {
			if _, ok := sw.allowedSet[state]; !ok {
				sw.complete(state, &InvalidState{State: state})
			}
		}
	})
	defer unsubscribe()

	res := <-sw.result
	return res.state, res.err
}

func (sw *stateWaiter) complete(state DeviceState, err error) {
	select {
	case sw.result <- stateResult{state: state, err: err}:
	default:
	}
}

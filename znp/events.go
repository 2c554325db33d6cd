package znp

import (
	"sync"
	"time"
)

// ResetInfo decodes SYS_RESET_IND, the AREQ the device sends on every
// boot (cold, warm, or on-request).
type ResetInfo struct {
	Reason       uint8
	TransportRev uint8
	ProductID    uint8
	MajorRel     uint8
	MinorRel     uint8
	HwRev        uint8
}

func decodeResetInfo(payload []byte) (ResetInfo, error) {
	r := newByteReader(payload)
	var info ResetInfo
	var err error
	if info.Reason, err = r.readUint8(); err != nil {
		return info, err
	}
	if info.TransportRev, err = r.readUint8(); err != nil {
		return info, err
	}
	if info.ProductID, err = r.readUint8(); err != nil {
		return info, err
	}
	if info.MajorRel, err = r.readUint8(); err != nil {
		return info, err
	}
	if info.MinorRel, err = r.readUint8(); err != nil {
		return info, err
	}
	if info.HwRev, err = r.readUint8(); err != nil {
		return info, err
	}
	return info, r.finish(false)
}

// EndDeviceAnnounce decodes ZDO_END_DEVICE_ANNCE_IND: the source
// addressing of the announcement, the short/IEEE pair it announces,
// and the announcing device's capability byte.
type EndDeviceAnnounce struct {
	SrcAddr      ShortAddress
	NwkAddr      ShortAddress
	IEEEAddr     IEEEAddress
	Capabilities uint8
}

func decodeEndDeviceAnnounce(payload []byte) (EndDeviceAnnounce, error) {
	r := newByteReader(payload)
	var a EndDeviceAnnounce
	var err error
	if a.SrcAddr, err = r.readShortAddress(); err != nil {
		return a, err
	}
	if a.NwkAddr, err = r.readShortAddress(); err != nil {
		return a, err
	}
	if a.IEEEAddr, err = r.readIEEEAddress(); err != nil {
		return a, err
	}
	if a.Capabilities, err = r.readUint8(); err != nil {
		return a, err
	}
	return a, r.finish(false)
}

// TrustCenterDevice decodes ZDO_TC_DEV_IND, reported when a device
// joins under the trust center.
type TrustCenterDevice struct {
	SrcAddr    ShortAddress
	IEEEAddr   IEEEAddress
	ParentAddr ShortAddress
}

func decodeTrustCenterDevice(payload []byte) (TrustCenterDevice, error) {
	r := newByteReader(payload)
	var t TrustCenterDevice
	var err error
	if t.SrcAddr, err = r.readShortAddress(); err != nil {
		return t, err
	}
	if t.IEEEAddr, err = r.readIEEEAddress(); err != nil {
		return t, err
	}
	if t.ParentAddr, err = r.readShortAddress(); err != nil {
		return t, err
	}
	return t, r.finish(false)
}

// IncomingMsg decodes AF_INCOMING_MSG. Its Data field holds the
// length-prefixed application payload, and decoding uses allow_partial:
// any bytes after Data's declared length are ignored rather than
// rejected as trailing garbage.
type IncomingMsg struct {
	GroupID         uint16
	ClusterID       uint16
	SrcAddr         ShortAddress
	SrcEndpoint     uint8
	DstEndpoint     uint8
	WasBroadcast    uint8
	LinkQuality     uint8
	SecurityUse     uint8
	TimeStamp       uint32
	TransSeqNumber  uint8
	Data            []byte
}

func decodeIncomingMsg(payload []byte) (IncomingMsg, error) {
	r := newByteReader(payload)
	var msg IncomingMsg
	var err error
	if msg.GroupID, err = r.readUint16(); err != nil {
		return msg, err
	}
	if msg.ClusterID, err = r.readUint16(); err != nil {
		return msg, err
	}
	if msg.SrcAddr, err = r.readShortAddress(); err != nil {
		return msg, err
	}
	if msg.SrcEndpoint, err = r.readUint8(); err != nil {
		return msg, err
	}
	if msg.DstEndpoint, err = r.readUint8(); err != nil {
		return msg, err
	}
	if msg.WasBroadcast, err = r.readUint8(); err != nil {
		return msg, err
	}
	if msg.LinkQuality, err = r.readUint8(); err != nil {
		return msg, err
	}
	if msg.SecurityUse, err = r.readUint8(); err != nil {
		return msg, err
	}
	if msg.TimeStamp, err = r.readUint32(); err != nil {
		return msg, err
	}
	if msg.TransSeqNumber, err = r.readUint8(); err != nil {
		return msg, err
	}
	dataLen, err := r.readUint8()
	if err != nil {
		return msg, err
	}
	if r.remaining() < int(dataLen) {
		return msg, newDecodeError("AF_INCOMING_MSG declares %d data bytes, only %d remain", dataLen, r.remaining())
	}
	msg.Data = append([]byte(nil), r.data[r.pos:r.pos+int(dataLen)]...)
	r.pos += int(dataLen)
	return msg, r.finish(true)
}

// BDBCommissioningNotification decodes APP_CNF's commissioning status
// AREQ. Recovered from the original implementation's commissioning
// signal; spec.md's event table doesn't name it but nothing excludes
// it, and higher-level join-flow consumers need it.
type BDBCommissioningNotification struct {
	Status       uint8
	Mode         uint8
	RemainingModes uint8
}

func decodeBDBCommissioningNotification(payload []byte) (BDBCommissioningNotification, error) {
	r := newByteReader(payload)
	var n BDBCommissioningNotification
	var err error
	if n.Status, err = r.readUint8(); err != nil {
		return n, err
	}
	if n.Mode, err = r.readUint8(); err != nil {
		return n, err
	}
	if n.RemainingModes, err = r.readUint8(); err != nil {
		return n, err
	}
	return n, r.finish(false)
}

var (
	commandSysResetInd       = Command{Subsystem: SubsystemSYS, ID: 0x80}
	commandZdoStateChangeInd = Command{Subsystem: SubsystemZDO, ID: 0xC0}
	commandZdoEndDeviceAnnce = Command{Subsystem: SubsystemZDO, ID: 0xC1}
	commandZdoTCDevInd       = Command{Subsystem: SubsystemZDO, ID: 0xCA}
	commandZdoPermitJoinInd  = Command{Subsystem: SubsystemZDO, ID: 0xCB}
	commandAfIncomingMsg     = Command{Subsystem: SubsystemAF, ID: 0x81}
	commandAppCnfBDBNotify   = Command{Subsystem: SubsystemAppCnf, ID: 0x80}
)

// subscriberList is a mutex-guarded, order-preserving set of callbacks
// for one event kind. Subscribing returns an unsubscribe func rather
// than requiring callers to hold onto a token.
type subscriberList[T any] struct {
	mu        sync.Mutex
	listeners map[int]func(T)
	nextID    int
}

func newSubscriberList[T any]() *subscriberList[T] {
	return &subscriberList[T]{listeners: make(map[int]func(T))}
}

func (s *subscriberList[T]) subscribe(fn func(T)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *subscriberList[T]) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

func (s *subscriberList[T]) fanOut(value T) {
	s.mu.Lock()
	fns := make([]func(T), 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}

// eventRouter owns the permanent handlers that fan AREQ frames out to
// named subscriber lists. Each is installed at construction time, so it
// sits ahead of every per-request waiter in the handler list and always
// gets first look at its command. On a successful decode it claims the
// frame (stop_processing = true): named events are mediator-owned, and
// nothing else installed later is meant to match the same command. A
// malformed payload is logged and left unclaimed so a diagnostic
// handler installed behind it could still inspect it.
type eventRouter struct {
	mediator *Mediator

	reset          *subscriberList[ResetInfo]
	stateChange    *subscriberList[DeviceState]
	endDeviceAnnce *subscriberList[EndDeviceAnnounce]
	tcDevice       *subscriberList[TrustCenterDevice]
	permitJoin     *subscriberList[uint8]
	incomingMsg    *subscriberList[IncomingMsg]
	bdbNotify      *subscriberList[BDBCommissioningNotification]
}

func newEventRouter(m *Mediator) *eventRouter {
	return &eventRouter{
		mediator:       m,
		reset:          newSubscriberList[ResetInfo](),
		stateChange:    newSubscriberList[DeviceState](),
		endDeviceAnnce: newSubscriberList[EndDeviceAnnounce](),
		tcDevice:       newSubscriberList[TrustCenterDevice](),
		permitJoin:     newSubscriberList[uint8](),
		incomingMsg:    newSubscriberList[IncomingMsg](),
		bdbNotify:      newSubscriberList[BDBCommissioningNotification](),
	}
}

// eventHandler adapts one (command, decode, fanOut) triple into a
// permanent frameHandler installed at mediator construction. deliver
// reports whether the payload decoded cleanly, which is what decides
// stop_processing.
type eventHandler struct {
	command Command
	deliver func(payload []byte) (claimed bool)
}

func (h *eventHandler) onFrame(frame Frame) frameAction {
	if frame.Type != FrameTypeAREQ || frame.Command != h.command {
		return frameAction{}
	}
	return frameAction{stopProcessing: h.deliver(frame.Payload)}
}

func (r *eventRouter) installDefaultHandlers() {
	log := r.mediator.log

	install := func(command Command, deliver func(payload []byte) bool) {
		r.mediator.addHandler(&eventHandler{command: command, deliver: deliver})
	}

	install(commandSysResetInd, func(payload []byte) bool {
		info, err := decodeResetInfo(payload)
		if err != nil {
			log.Warn().Err(err).Msg("dropping malformed SYS_RESET_IND")
			return false
		}
		r.reset.fanOut(info)
		return true
	})

	install(commandZdoStateChangeInd, func(payload []byte) bool {
		if len(payload) < 1 {
			log.Warn().Msg("dropping empty ZDO_STATE_CHANGE_IND")
			return false
		}
		r.stateChange.fanOut(DeviceState(payload[0]))
		return true
	})

	install(commandZdoEndDeviceAnnce, func(payload []byte) bool {
		a, err := decodeEndDeviceAnnounce(payload)
		if err != nil {
			log.Warn().Err(err).Msg("dropping malformed ZDO_END_DEVICE_ANNCE_IND")
			return false
		}
		r.endDeviceAnnce.fanOut(a)
		return true
	})

	install(commandZdoTCDevInd, func(payload []byte) bool {
		t, err := decodeTrustCenterDevice(payload)
		if err != nil {
			log.Warn().Err(err).Msg("dropping malformed ZDO_TC_DEV_IND")
			return false
		}
		r.tcDevice.fanOut(t)
		return true
	})

	install(commandZdoPermitJoinInd, func(payload []byte) bool {
		if len(payload) < 1 {
			log.Warn().Msg("dropping empty ZDO_PERMIT_JOIN_IND")
			return false
		}
		r.permitJoin.fanOut(payload[0])
		return true
	})

	install(commandAfIncomingMsg, func(payload []byte) bool {
		msg, err := decodeIncomingMsg(payload)
		if err != nil {
			log.Warn().Err(err).Msg("dropping malformed AF_INCOMING_MSG")
			return false
		}
		r.incomingMsg.fanOut(msg)
		return true
	})

	install(commandAppCnfBDBNotify, func(payload []byte) bool {
		n, err := decodeBDBCommissioningNotification(payload)
		if err != nil {
			log.Warn().Err(err).Msg("dropping malformed BDB commissioning notification")
			return false
		}
		r.bdbNotify.fanOut(n)
		return true
	})
}

func (r *eventRouter) subscribeStateChange(fn func(DeviceState)) func() {
	return r.stateChange.subscribe(fn)
}

// waitForEvent blocks until subscribe's callback fires once or
// timeoutSeconds elapses, whichever comes first. Event-owned commands
// (the ones installDefaultHandlers claims) stop_processing once
// decoded, so a command facade that wants to block on its own AREQ
// follow-up subscribes through the event router rather than installing
// a second WaitFor handler for the same command, which would never run.
func waitForEvent[T any](timeoutSeconds float64, subscribe func(func(T)) func()) (T, error) {
	var zero T
	result := make(chan T, 1)
	unsubscribe := subscribe(func(v T) {
		select {
		case result <- v:
		default:
		}
	})
	defer unsubscribe()

	if timeoutSeconds <= 0 {
		return <-result, nil
	}

	timer := time.NewTimer(time.Duration(timeoutSeconds * float64(time.Second)))
	defer timer.Stop()

	select {
	case v := <-result:
		return v, nil
	case <-timer.C:
		return zero, ErrTimeout
	}
}

// OnReset subscribes to SYS_RESET_IND; the returned func unsubscribes.
func (m *Mediator) OnReset(fn func(ResetInfo)) func() { return m.events.reset.subscribe(fn) }

// OnStateChange subscribes to ZDO_STATE_CHANGE_IND.
func (m *Mediator) OnStateChange(fn func(DeviceState)) func() {
	return m.events.subscribeStateChange(fn)
}

// OnEndDeviceAnnounce subscribes to ZDO_END_DEVICE_ANNCE_IND.
func (m *Mediator) OnEndDeviceAnnounce(fn func(EndDeviceAnnounce)) func() {
	return m.events.endDeviceAnnce.subscribe(fn)
}

// OnTrustCenterDevice subscribes to ZDO_TC_DEV_IND.
func (m *Mediator) OnTrustCenterDevice(fn func(TrustCenterDevice)) func() {
	return m.events.tcDevice.subscribe(fn)
}

// OnPermitJoin subscribes to ZDO_PERMIT_JOIN_IND.
func (m *Mediator) OnPermitJoin(fn func(uint8)) func() { return m.events.permitJoin.subscribe(fn) }

// OnIncomingMsg subscribes to AF_INCOMING_MSG.
func (m *Mediator) OnIncomingMsg(fn func(IncomingMsg)) func() {
	return m.events.incomingMsg.subscribe(fn)
}

// OnBDBCommissioningNotification subscribes to the APP_CNF
// commissioning-status AREQ.
func (m *Mediator) OnBDBCommissioningNotification(fn func(BDBCommissioningNotification)) func() {
	return m.events.bdbNotify.subscribe(fn)
}

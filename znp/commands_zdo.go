package znp

// ZDO subsystem command IDs used by this façade.
var (
	cmdZdoIEEEAddrReq       = Command{Subsystem: SubsystemZDO, ID: 0x01}
	cmdZdoStartupFromApp    = Command{Subsystem: SubsystemZDO, ID: 0x40}
	cmdZdoBindReq           = Command{Subsystem: SubsystemZDO, ID: 0x21}
	cmdZdoUnbindReq         = Command{Subsystem: SubsystemZDO, ID: 0x22}
	cmdZdoRemoveLinkKey     = Command{Subsystem: SubsystemZDO, ID: 0x24}
	cmdZdoGetLinkKey        = Command{Subsystem: SubsystemZDO, ID: 0x25}
	cmdZdoMgmtBindReq       = Command{Subsystem: SubsystemZDO, ID: 0x33}
	cmdZdoMgmtLeaveReq      = Command{Subsystem: SubsystemZDO, ID: 0x34}
	cmdZdoMgmtDirectJoinReq = Command{Subsystem: SubsystemZDO, ID: 0x35}
	cmdZdoMgmtPermitJoinReq = Command{Subsystem: SubsystemZDO, ID: 0x36}
	cmdZdoExtAddGroup              = Command{Subsystem: SubsystemZDO, ID: 0x46}
	cmdZdoExtRemoveGroup           = Command{Subsystem: SubsystemZDO, ID: 0x47}
	cmdZdoExtRemoveAllGroup        = Command{Subsystem: SubsystemZDO, ID: 0x48}
	cmdZdoExtFindAllGroupsEndpoint = Command{Subsystem: SubsystemZDO, ID: 0x49}
	cmdZdoExtFindGroup             = Command{Subsystem: SubsystemZDO, ID: 0x4B}
	cmdZdoExtCountAllGroups        = Command{Subsystem: SubsystemZDO, ID: 0x4C}

	commandZdoIEEEAddrRsp       = Command{Subsystem: SubsystemZDO, ID: 0x81}
	commandZdoBindRsp           = Command{Subsystem: SubsystemZDO, ID: 0xA1}
	commandZdoUnbindRsp         = Command{Subsystem: SubsystemZDO, ID: 0xA2}
	commandZdoMgmtBindRsp       = Command{Subsystem: SubsystemZDO, ID: 0xB3}
	commandZdoMgmtLeaveRsp      = Command{Subsystem: SubsystemZDO, ID: 0xB4}
	commandZdoMgmtDirectJoinRsp = Command{Subsystem: SubsystemZDO, ID: 0xB5}
	commandZdoMgmtPermitJoinRsp = Command{Subsystem: SubsystemZDO, ID: 0xB6}
)

// defaultZdoRspTimeout is the interval these ZDO *_RSP follow-ups are
// awaited for, matching spec.md §8 scenario 5's waiter-timeout example.
const defaultZdoRspTimeout = 15.0

// checkAREQStatus decodes a ZDO *_RSP AREQ's status byte once the
// responding device's short address prefix has already been stripped
// by WaitFor/WaitAfter's prefix match.
func checkAREQStatus(payload []byte) error {
	if len(payload) < 1 {
		return newProtocolError("empty ZDO response status")
	}
	if payload[0] != 0x00 {
		return &ZnpStatusError{Code: payload[0]}
	}
	return nil
}

// BindTargetKind discriminates the shapes BindTarget can hold.
type BindTargetKind uint8

const (
	BindTargetNone BindTargetKind = iota
	BindTargetGroup
	BindTargetShortAddress
	BindTargetIEEEAddress
	BindTargetBroadcast
)

// BindTarget is a tagged union over the destination addressing modes
// ZdoBind/ZdoUnbind accept: nothing, a group, a short address, an IEEE
// address plus endpoint, or broadcast. Kept as a typed value instead
// of a bare address so a caller can't accidentally bind to a group id
// where an endpoint was required.
type BindTarget struct {
	kind     BindTargetKind
	group    uint16
	short    ShortAddress
	ieee     IEEEAddress
	endpoint uint8
}

func NewGroupBindTarget(group uint16) BindTarget {
	return BindTarget{kind: BindTargetGroup, group: group}
}

func NewShortAddressBindTarget(addr ShortAddress) BindTarget {
	return BindTarget{kind: BindTargetShortAddress, short: addr}
}

func NewIEEEAddressBindTarget(addr IEEEAddress, endpoint uint8) BindTarget {
	return BindTarget{kind: BindTargetIEEEAddress, ieee: addr, endpoint: endpoint}
}

func NewBroadcastBindTarget() BindTarget {
	return BindTarget{kind: BindTargetBroadcast}
}

// encode returns the wire AddrMode byte ZDO_BIND_REQ/UNBIND_REQ
// expect, and the encoded destination address field.
func (t BindTarget) encode() (addrMode uint8, addr []byte) {
	switch t.kind {
	case BindTargetGroup:
		buf := make([]byte, 8)
		putUint16(buf, t.group)
		return 0x01, buf
	case BindTargetShortAddress:
		buf := make([]byte, 8)
		putUint16(buf, uint16(t.short))
		return 0x02, buf
	case BindTargetIEEEAddress:
		buf := make([]byte, 8)
		putUint64(buf, uint64(t.ieee))
		return 0x03, buf
	case BindTargetBroadcast:
		buf := make([]byte, 8)
		for i := range buf {
			buf[i] = 0xFF
		}
		return 0x0F, buf
	default:
		return 0x00, make([]byte, 8)
	}
}

// ZdoIEEEAddressResponse decodes ZDO_IEEE_ADDR_RSP: the device's
// 64-bit MAC address keyed by its current short address, plus the
// optional trailing associated-device-list extension.
type ZdoIEEEAddressResponse struct {
	Status          uint8
	IEEEAddr        IEEEAddress
	NwkAddr         ShortAddress
	StartIndex      uint8
	AssocDevices    []ShortAddress
}

func decodeZdoIEEEAddressResponse(payload []byte) (ZdoIEEEAddressResponse, error) {
	r := newByteReader(payload)
	var resp ZdoIEEEAddressResponse
	var err error
	if resp.Status, err = r.readUint8(); err != nil {
		return resp, err
	}
	if resp.IEEEAddr, err = r.readIEEEAddress(); err != nil {
		return resp, err
	}
	if resp.NwkAddr, err = r.readShortAddress(); err != nil {
		return resp, err
	}
	if r.remaining() == 0 {
		return resp, nil
	}
	numAssoc, err := r.readUint8()
	if err != nil {
		return resp, err
	}
	if resp.StartIndex, err = r.readUint8(); err != nil {
		return resp, err
	}
	resp.AssocDevices = make([]ShortAddress, 0, numAssoc)
	for i := uint8(0); i < numAssoc; i++ {
		addr, err := r.readShortAddress()
		if err != nil {
			return resp, err
		}
		resp.AssocDevices = append(resp.AssocDevices, addr)
	}
	return resp, r.finish(false)
}

// ZdoIEEEAddress resolves a short address to its 64-bit IEEE address.
func (m *Mediator) ZdoIEEEAddress(shortAddr ShortAddress, reqType uint8, startIndex uint8) (ZdoIEEEAddressResponse, error) {
	payload := append(encodeShortAddress(shortAddr), reqType, startIndex)

	resp, err := m.SendSREQ(cmdZdoIEEEAddrReq, payload)
	if err != nil {
		return ZdoIEEEAddressResponse{}, err
	}
	if err := CheckOnlyStatus(resp); err != nil {
		return ZdoIEEEAddressResponse{}, err
	}

	ind, err := m.WaitFor(FrameTypeAREQ, commandZdoIEEEAddrRsp, defaultAfDataConfirmTimeout, nil)
	if err != nil {
		return ZdoIEEEAddressResponse{}, err
	}
	return decodeZdoIEEEAddressResponse(ind)
}

// ZdoStartupFromApp kicks off network formation/join using the
// settings already written to NV, per the original start-up sequence.
// Returns the device's initial startup status (0 = restored network
// state, 1 = new network state, 2 = leave and not starting).
func (m *Mediator) ZdoStartupFromApp(startDelaySeconds uint16) (uint8, error) {
	payload := make([]byte, 2)
	putUint16(payload, startDelaySeconds)

	resp, err := m.SendSREQ(cmdZdoStartupFromApp, payload)
	if err != nil {
		return 0, err
	}
	if len(resp) < 1 {
		return 0, newProtocolError("empty ZDO_STARTUP_FROM_APP response")
	}
	return resp[0], nil
}

// ZdoBind establishes a source→destination binding on the device
// identified by targetAddr. The SRSP only acknowledges that the
// request was accepted; the actual outcome arrives as the BIND_RSP
// AREQ, prefix-matched on targetAddr (the responding device echoes its
// own short address first), so this awaits that follow-up before
// reporting success.
func (m *Mediator) ZdoBind(targetAddr ShortAddress, srcAddr IEEEAddress, srcEndpoint uint8, clusterID uint16, dst BindTarget) error {
	payload := encodeShortAddress(targetAddr)
	payload = append(payload, encodeIEEEAddress(srcAddr)...)
	payload = append(payload, srcEndpoint)
	clusterBuf := make([]byte, 2)
	putUint16(clusterBuf, clusterID)
	payload = append(payload, clusterBuf...)

	addrMode, addr := dst.encode()
	payload = append(payload, addrMode)
	payload = append(payload, addr...)
	if dst.kind == BindTargetIEEEAddress {
		payload = append(payload, dst.endpoint)
	}

	resp, err := m.SendSREQ(cmdZdoBindReq, payload)
	first := err
	if first == nil {
		first = CheckOnlyStatus(resp)
	}
	ind, err := m.WaitAfter(first, FrameTypeAREQ, commandZdoBindRsp, defaultZdoRspTimeout, encodeShortAddress(targetAddr))
	if err != nil {
		return err
	}
	return checkAREQStatus(ind)
}

// ZdoUnbind removes a binding previously created with ZdoBind, awaiting
// the UNBIND_RSP follow-up the same way ZdoBind awaits BIND_RSP.
func (m *Mediator) ZdoUnbind(targetAddr ShortAddress, srcAddr IEEEAddress, srcEndpoint uint8, clusterID uint16, dst BindTarget) error {
	payload := encodeShortAddress(targetAddr)
	payload = append(payload, encodeIEEEAddress(srcAddr)...)
	payload = append(payload, srcEndpoint)
	clusterBuf := make([]byte, 2)
	putUint16(clusterBuf, clusterID)
	payload = append(payload, clusterBuf...)

	addrMode, addr := dst.encode()
	payload = append(payload, addrMode)
	payload = append(payload, addr...)
	if dst.kind == BindTargetIEEEAddress {
		payload = append(payload, dst.endpoint)
	}

	resp, err := m.SendSREQ(cmdZdoUnbindReq, payload)
	first := err
	if first == nil {
		first = CheckOnlyStatus(resp)
	}
	ind, err := m.WaitAfter(first, FrameTypeAREQ, commandZdoUnbindRsp, defaultZdoRspTimeout, encodeShortAddress(targetAddr))
	if err != nil {
		return err
	}
	return checkAREQStatus(ind)
}

// BindTableEntry describes one row of ZDO_MGMT_BIND_RSP's table.
// Nothing in this package decodes into it; ZdoMgmtBindReq returns the
// table as raw bytes.
type BindTableEntry struct {
	SrcAddr     IEEEAddress
	SrcEndpoint uint8
	ClusterID   uint16
	DstAddrMode uint8
	DstAddr     IEEEAddress
	DstEndpoint uint8
}

// ZdoMgmtBindReq requests a page of a remote device's binding table.
// The SRSP only acks the request; the table itself arrives as the
// MGMT_BIND_RSP AREQ, prefix-matched on targetAddr, which this awaits
// before returning the post-status bytes for the caller to decode into
// []BindTableEntry.
func (m *Mediator) ZdoMgmtBindReq(targetAddr ShortAddress, startIndex uint8) ([]byte, error) {
	payload := append(encodeShortAddress(targetAddr), startIndex)
	resp, err := m.SendSREQ(cmdZdoMgmtBindReq, payload)
	first := err
	if first == nil {
		first = CheckOnlyStatus(resp)
	}
	ind, err := m.WaitAfter(first, FrameTypeAREQ, commandZdoMgmtBindRsp, defaultZdoRspTimeout, encodeShortAddress(targetAddr))
	if err != nil {
		return nil, err
	}
	return CheckStatus(ind)
}

// ZdoMgmtLeave asks the device (or, via targetAddr/deviceAddr, a
// remote node) to leave the network, awaiting the MGMT_LEAVE_RSP AREQ
// that carries the real outcome.
func (m *Mediator) ZdoMgmtLeave(targetAddr ShortAddress, deviceAddr IEEEAddress, removeChildrenRejoin uint8) error {
	payload := encodeShortAddress(targetAddr)
	payload = append(payload, encodeIEEEAddress(deviceAddr)...)
	payload = append(payload, removeChildrenRejoin)

	resp, err := m.SendSREQ(cmdZdoMgmtLeaveReq, payload)
	first := err
	if first == nil {
		first = CheckOnlyStatus(resp)
	}
	ind, err := m.WaitAfter(first, FrameTypeAREQ, commandZdoMgmtLeaveRsp, defaultZdoRspTimeout, encodeShortAddress(targetAddr))
	if err != nil {
		return err
	}
	return checkAREQStatus(ind)
}

// ZdoMgmtDirectJoin directly injects a device into the network without
// an over-the-air join handshake, awaiting the MGMT_DIRECT_JOIN_RSP
// AREQ that carries the real outcome.
func (m *Mediator) ZdoMgmtDirectJoin(targetAddr ShortAddress, deviceAddr IEEEAddress, capInfo uint8) error {
	payload := encodeShortAddress(targetAddr)
	payload = append(payload, encodeIEEEAddress(deviceAddr)...)
	payload = append(payload, capInfo)

	resp, err := m.SendSREQ(cmdZdoMgmtDirectJoinReq, payload)
	first := err
	if first == nil {
		first = CheckOnlyStatus(resp)
	}
	ind, err := m.WaitAfter(first, FrameTypeAREQ, commandZdoMgmtDirectJoinRsp, defaultZdoRspTimeout, encodeShortAddress(targetAddr))
	if err != nil {
		return err
	}
	return checkAREQStatus(ind)
}

// ZdoMgmtPermitJoin opens or closes the network's join window for
// durationSeconds (0 disables, 0xFF permits indefinitely), awaiting the
// MGMT_PERMIT_JOIN_RSP AREQ that carries the real outcome.
func (m *Mediator) ZdoMgmtPermitJoin(targetAddr ShortAddress, durationSeconds uint8, tcSignificance uint8) error {
	payload := encodeShortAddress(targetAddr)
	payload = append(payload, durationSeconds, tcSignificance)

	resp, err := m.SendSREQ(cmdZdoMgmtPermitJoinReq, payload)
	first := err
	if first == nil {
		first = CheckOnlyStatus(resp)
	}
	ind, err := m.WaitAfter(first, FrameTypeAREQ, commandZdoMgmtPermitJoinRsp, defaultZdoRspTimeout, encodeShortAddress(targetAddr))
	if err != nil {
		return err
	}
	return checkAREQStatus(ind)
}

// ZdoRemoveLinkKey deletes a stored application link key for ieeeAddr.
func (m *Mediator) ZdoRemoveLinkKey(ieeeAddr IEEEAddress) error {
	resp, err := m.SendSREQ(cmdZdoRemoveLinkKey, encodeIEEEAddress(ieeeAddr))
	if err != nil {
		return err
	}
	return CheckOnlyStatus(resp)
}

// ZdoGetLinkKey retrieves a stored application link key for ieeeAddr.
func (m *Mediator) ZdoGetLinkKey(ieeeAddr IEEEAddress) ([]byte, error) {
	resp, err := m.SendSREQ(cmdZdoGetLinkKey, encodeIEEEAddress(ieeeAddr))
	if err != nil {
		return nil, err
	}
	return CheckStatus(resp)
}

// ZdoExtAddGroup adds endpoint to a group.
func (m *Mediator) ZdoExtAddGroup(endpoint uint8, group uint16, groupName []byte) error {
	groupBuf := make([]byte, 2)
	putUint16(groupBuf, group)
	payload := append([]byte{endpoint}, groupBuf...)
	payload = append(payload, groupName...)

	resp, err := m.SendSREQ(cmdZdoExtAddGroup, payload)
	if err != nil {
		return err
	}
	return CheckOnlyStatus(resp)
}

// ZdoExtRemoveGroup removes endpoint from a single group. Its SRSP may
// arrive under either EXT_REMOVE_GROUP or EXT_REMOVE_ALL_GROUP
// depending on firmware, so both are accepted per spec.md §4.2's
// accepted_responses mechanism.
func (m *Mediator) ZdoExtRemoveGroup(endpoint uint8, group uint16) error {
	groupBuf := make([]byte, 2)
	putUint16(groupBuf, group)
	payload := append([]byte{endpoint}, groupBuf...)

	resp, err := m.SendSREQ(cmdZdoExtRemoveGroup, payload, cmdZdoExtRemoveAllGroup)
	if err != nil {
		return err
	}
	return CheckOnlyStatus(resp)
}

// ZdoExtRemoveAllGroup removes endpoint from every group it belongs
// to. Accepts the same pair of SRSP commands as ZdoExtRemoveGroup.
func (m *Mediator) ZdoExtRemoveAllGroup(endpoint uint8) error {
	resp, err := m.SendSREQ(cmdZdoExtRemoveAllGroup, []byte{endpoint}, cmdZdoExtRemoveGroup)
	if err != nil {
		return err
	}
	return CheckOnlyStatus(resp)
}

// ZdoExtFindAllGroupsEndpoint lists every group endpoint belongs to.
func (m *Mediator) ZdoExtFindAllGroupsEndpoint(endpoint uint8) ([]uint16, error) {
	resp, err := m.SendSREQ(cmdZdoExtFindAllGroupsEndpoint, []byte{endpoint})
	if err != nil {
		return nil, err
	}
	r := newByteReader(resp)
	count, err := r.readUint8()
	if err != nil {
		return nil, err
	}
	groups := make([]uint16, 0, count)
	for i := uint8(0); i < count; i++ {
		g, err := r.readUint16()
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, r.finish(false)
}

// ZdoExtFindGroup looks up group on endpoint and returns the SRSP
// payload as received; the status byte is not checked and the stored
// group name is not extracted from it.
func (m *Mediator) ZdoExtFindGroup(endpoint uint8, group uint16) ([]byte, error) {
	groupBuf := make([]byte, 2)
	putUint16(groupBuf, group)
	payload := append([]byte{endpoint}, groupBuf...)

	resp, err := m.SendSREQ(cmdZdoExtFindGroup, payload)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ZdoExtCountAllGroups returns the number of groups registered on the
// device across all endpoints.
func (m *Mediator) ZdoExtCountAllGroups() (uint8, error) {
	resp, err := m.SendSREQ(cmdZdoExtCountAllGroups, nil)
	if err != nil {
		return 0, err
	}
	if len(resp) < 1 {
		return 0, newProtocolError("empty ZDO_EXT_COUNT_ALL_GROUPS response")
	}
	return resp[0], nil
}

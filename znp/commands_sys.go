package znp

// SYS subsystem command IDs used by this façade.
var (
	cmdSysResetReq      = Command{Subsystem: SubsystemSYS, ID: 0x00} // AREQ, no SRSP: device replies with SYS_RESET_IND
	cmdSysPing          = Command{Subsystem: SubsystemSYS, ID: 0x01}
	cmdSysVersion       = Command{Subsystem: SubsystemSYS, ID: 0x02}
	cmdSysOsalNvItemInit = Command{Subsystem: SubsystemSYS, ID: 0x07}
	cmdSysOsalNvRead    = Command{Subsystem: SubsystemSYS, ID: 0x08}
	cmdSysOsalNvWrite   = Command{Subsystem: SubsystemSYS, ID: 0x09}
	cmdSysOsalNvDelete  = Command{Subsystem: SubsystemSYS, ID: 0x12}
	cmdSysOsalNvLength  = Command{Subsystem: SubsystemSYS, ID: 0x13}
)

// NvItemId is the NV item address space SYS_OSAL_NV_* operations key
// off. Kept as a distinct type rather than a bare uint16 so callers
// can't accidentally pass a ShortAddress or cluster id where an NV
// item id is expected.
type NvItemId uint16

// Well-known NV items from the original implementation's address
// space; the full vendor table is out of scope, these are the ones
// the recovered façade actually reads/writes.
const (
	NvItemExtPanID    NvItemId = 0x002D
	NvItemPanID       NvItemId = 0x0083
	NvItemChanList    NvItemId = 0x0084
	NvItemLogicalType NvItemId = 0x0087
	NvItemPrecfgKey   NvItemId = 0x0062
)

// VersionInfo decodes SYS_VERSION's SRSP.
type VersionInfo struct {
	TransportRev uint8
	Product      uint8
	MajorRel     uint8
	MinorRel     uint8
	MaintRel     uint8
	Revision     uint32
}

func decodeVersionInfo(payload []byte) (VersionInfo, error) {
	r := newByteReader(payload)
	var v VersionInfo
	var err error
	if v.TransportRev, err = r.readUint8(); err != nil {
		return v, err
	}
	if v.Product, err = r.readUint8(); err != nil {
		return v, err
	}
	if v.MajorRel, err = r.readUint8(); err != nil {
		return v, err
	}
	if v.MinorRel, err = r.readUint8(); err != nil {
		return v, err
	}
	if v.MaintRel, err = r.readUint8(); err != nil {
		return v, err
	}
	if v.Revision, err = r.readUint32(); err != nil {
		return v, err
	}
	return v, r.finish(false)
}

// SysReset sends SYS_RESET_REQ (an AREQ: the device never SRSPs it)
// and waits for the SYS_RESET_IND that follows the reboot. resetType
// 0 selects a hard reset, 1 a soft (serial-bootloader-preserving)
// reset, matching the vendor's ResetType byte. SYS_RESET_IND is an
// event-router-owned command (installDefaultHandlers claims it), so
// this subscribes through OnReset rather than installing its own
// WaitFor handler for the same command, which would never see it.
func (m *Mediator) SysReset(resetType uint8, timeoutSeconds float64) (ResetInfo, error) {
	if err := m.sendFrame(Frame{Type: FrameTypeAREQ, Command: cmdSysResetReq, Payload: []byte{resetType}}); err != nil {
		return ResetInfo{}, err
	}
	return waitForEvent(timeoutSeconds, m.OnReset)
}

// SysPing returns the device's capability bitmask.
func (m *Mediator) SysPing() (uint16, error) {
	resp, err := m.SendSREQ(cmdSysPing, nil)
	if err != nil {
		return 0, err
	}
	r := newByteReader(resp)
	capabilities, err := r.readUint16()
	if err != nil {
		return 0, err
	}
	return capabilities, r.finish(false)
}

// SysVersion returns the firmware/transport version report.
func (m *Mediator) SysVersion() (VersionInfo, error) {
	resp, err := m.SendSREQ(cmdSysVersion, nil)
	if err != nil {
		return VersionInfo{}, err
	}
	return decodeVersionInfo(resp)
}

// SysOsalNvItemInit creates an NV item of the given length if it
// doesn't already exist, seeding it with initValue. Returns the
// create/already-exists status the device reports (0 = created,
// 9 = already exists, per the vendor's OSAL NV status codes), since
// "already exists" is a normal outcome callers routinely ignore.
func (m *Mediator) SysOsalNvItemInit(id NvItemId, itemLen uint16, initValue []byte) (uint8, error) {
	payload := make([]byte, 0, 5+len(initValue))
	idBuf := make([]byte, 2)
	putUint16(idBuf, uint16(id))
	payload = append(payload, idBuf...)
	lenBuf := make([]byte, 2)
	putUint16(lenBuf, itemLen)
	payload = append(payload, lenBuf...)
	payload = append(payload, uint8(len(initValue)))
	payload = append(payload, initValue...)

	resp, err := m.SendSREQ(cmdSysOsalNvItemInit, payload)
	if err != nil {
		return 0, err
	}
	if len(resp) < 1 {
		return 0, newProtocolError("empty SYS_OSAL_NV_ITEM_INIT response")
	}
	return resp[0], nil
}

// SysOsalNvRead reads up to 255 bytes of an NV item starting at offset.
func (m *Mediator) SysOsalNvRead(id NvItemId, offset uint8) ([]byte, error) {
	idBuf := make([]byte, 2)
	putUint16(idBuf, uint16(id))
	payload := append(idBuf, offset)

	resp, err := m.SendSREQ(cmdSysOsalNvRead, payload)
	if err != nil {
		return nil, err
	}
	body, err := CheckStatus(resp)
	if err != nil {
		return nil, err
	}
	if len(body) < 1 {
		return nil, newProtocolError("SYS_OSAL_NV_READ missing length byte")
	}
	n := int(body[0])
	if len(body)-1 < n {
		return nil, newDecodeError("SYS_OSAL_NV_READ declares %d bytes, only %d remain", n, len(body)-1)
	}
	return body[1 : 1+n], nil
}

// SysOsalNvWrite writes value into an NV item starting at offset.
func (m *Mediator) SysOsalNvWrite(id NvItemId, offset uint8, value []byte) error {
	idBuf := make([]byte, 2)
	putUint16(idBuf, uint16(id))
	payload := append(idBuf, offset, uint8(len(value)))
	payload = append(payload, value...)

	resp, err := m.SendSREQ(cmdSysOsalNvWrite, payload)
	if err != nil {
		return err
	}
	return CheckOnlyStatus(resp)
}

// SysOsalNvDelete removes an NV item of the given length.
func (m *Mediator) SysOsalNvDelete(id NvItemId, itemLen uint16) error {
	idBuf := make([]byte, 2)
	putUint16(idBuf, uint16(id))
	lenBuf := make([]byte, 2)
	putUint16(lenBuf, itemLen)
	payload := append(idBuf, lenBuf...)

	resp, err := m.SendSREQ(cmdSysOsalNvDelete, payload)
	if err != nil {
		return err
	}
	return CheckOnlyStatus(resp)
}

// SysOsalNvLength returns an NV item's length, or 0 if it doesn't exist.
func (m *Mediator) SysOsalNvLength(id NvItemId) (uint16, error) {
	idBuf := make([]byte, 2)
	putUint16(idBuf, uint16(id))

	resp, err := m.SendSREQ(cmdSysOsalNvLength, idBuf)
	if err != nil {
		return 0, err
	}
	r := newByteReader(resp)
	length, err := r.readUint16()
	if err != nil {
		return 0, err
	}
	return length, r.finish(false)
}

package znp

// UTIL subsystem command IDs used by this façade.
var (
	cmdUtilAddrmgrNwkAddrLookup = Command{Subsystem: SubsystemUTIL, ID: 0x41}
	cmdUtilAddrmgrExtAddrLookup = Command{Subsystem: SubsystemUTIL, ID: 0x40}
)

// UtilAddrmgrNwkAddrLookup resolves a short address through the
// device's internal address manager table, returning the associated
// IEEE address.
func (m *Mediator) UtilAddrmgrNwkAddrLookup(addr ShortAddress) (IEEEAddress, error) {
	resp, err := m.SendSREQ(cmdUtilAddrmgrNwkAddrLookup, encodeShortAddress(addr))
	if err != nil {
		return 0, err
	}
	r := newByteReader(resp)
	ieee, err := r.readIEEEAddress()
	if err != nil {
		return 0, err
	}
	return ieee, r.finish(false)
}

// UtilAddrmgrExtAddrLookup resolves an IEEE address through the
// device's internal address manager table, returning the associated
// short address.
func (m *Mediator) UtilAddrmgrExtAddrLookup(addr IEEEAddress) (ShortAddress, error) {
	resp, err := m.SendSREQ(cmdUtilAddrmgrExtAddrLookup, encodeIEEEAddress(addr))
	if err != nil {
		return 0, err
	}
	r := newByteReader(resp)
	short, err := r.readShortAddress()
	if err != nil {
		return 0, err
	}
	return short, r.finish(false)
}

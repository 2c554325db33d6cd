package znp

// APP_CNF subsystem command IDs used by this façade.
var (
	cmdAppCnfBdbSetChannel          = Command{Subsystem: SubsystemAppCnf, ID: 0x08}
	cmdAppCnfBdbStartCommissioning  = Command{Subsystem: SubsystemAppCnf, ID: 0x05}
)

// BDB commissioning mode bits for AppCnfBdbStartCommissioning.
const (
	BdbCommissioningModeInitiatorTC   uint8 = 0x01
	BdbCommissioningModeNwkSteering   uint8 = 0x02
	BdbCommissioningModeNwkFormation  uint8 = 0x04
	BdbCommissioningModeFinding       uint8 = 0x08
	BdbCommissioningModeTouchlink     uint8 = 0x10
	BdbCommissioningModeParentLost    uint8 = 0x20
)

// AppCnfBdbSetChannel restricts BDB network formation/steering to the
// given 32-bit channel mask, split into primary/secondary per the
// vendor's two-call convention: isPrimary selects which of the two
// masks this call sets.
func (m *Mediator) AppCnfBdbSetChannel(isPrimary bool, channelMask uint32) error {
	flag := uint8(0)
	if isPrimary {
		flag = 1
	}
	maskBuf := make([]byte, 4)
	putUint32(maskBuf, channelMask)
	payload := append([]byte{flag}, maskBuf...)

	resp, err := m.SendSREQ(cmdAppCnfBdbSetChannel, payload)
	if err != nil {
		return err
	}
	return CheckOnlyStatus(resp)
}

// AppCnfBdbStartCommissioning kicks off one or more BDB commissioning
// modes (bitwise-or of the BdbCommissioningMode* constants). Progress
// and completion are reported asynchronously via
// OnBDBCommissioningNotification, not by this call's SRSP.
func (m *Mediator) AppCnfBdbStartCommissioning(modeMask uint8) error {
	resp, err := m.SendSREQ(cmdAppCnfBdbStartCommissioning, []byte{modeMask})
	if err != nil {
		return err
	}
	return CheckOnlyStatus(resp)
}

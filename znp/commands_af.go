package znp

// AF subsystem command IDs used by this façade.
var (
	cmdAfRegister     = Command{Subsystem: SubsystemAF, ID: 0x00}
	cmdAfDataRequest  = Command{Subsystem: SubsystemAF, ID: 0x01}
	commandAfDataConfirm = Command{Subsystem: SubsystemAF, ID: 0x80}
)

// defaultAfDataConfirmTimeout is the "timeout ≈ default" the composite
// operation description leaves unspecified; ZNP devices confirm
// DATA_REQUEST well under this in normal operation.
const defaultAfDataConfirmTimeout = 8.0

// SimpleDescriptor mirrors the fields AF_REGISTER needs to announce an
// application endpoint to the stack.
type SimpleDescriptor struct {
	Endpoint        uint8
	ProfileID       uint16
	DeviceID        uint16
	DeviceVersion   uint8
	InputClusters   []uint16
	OutputClusters  []uint16
}

// AfRegister announces an application endpoint. Must be called once
// per endpoint before AfDataRequest can send from it.
func (m *Mediator) AfRegister(desc SimpleDescriptor) error {
	payload := make([]byte, 0, 9+2*len(desc.InputClusters)+2*len(desc.OutputClusters))
	payload = append(payload, desc.Endpoint)
	profBuf := make([]byte, 2)
	putUint16(profBuf, desc.ProfileID)
	payload = append(payload, profBuf...)
	devBuf := make([]byte, 2)
	putUint16(devBuf, desc.DeviceID)
	payload = append(payload, devBuf...)
	payload = append(payload, desc.DeviceVersion)
	payload = append(payload, 0x00) // LatencyReq: NO_LATENCY_REQS

	payload = append(payload, uint8(len(desc.InputClusters)))
	for _, c := range desc.InputClusters {
		buf := make([]byte, 2)
		putUint16(buf, c)
		payload = append(payload, buf...)
	}
	payload = append(payload, uint8(len(desc.OutputClusters)))
	for _, c := range desc.OutputClusters {
		buf := make([]byte, 2)
		putUint16(buf, c)
		payload = append(payload, buf...)
	}

	resp, err := m.SendSREQ(cmdAfRegister, payload)
	if err != nil {
		return err
	}
	return CheckOnlyStatus(resp)
}

// DataRequest is the parameter set for AfDataRequest.
type DataRequest struct {
	DstAddr  ShortAddress
	DstEP    uint8
	SrcEP    uint8
	ClusterID uint16
	TransID  uint8
	Options  uint8
	Radius   uint8
	Data     []byte
}

// AfDataRequest sends an application-framework data frame and waits
// for the matching DATA_CONFIRM, exactly as described for the
// illustrative composite operation this façade is built around: send,
// check the SRSP status, wait for the confirm AREQ, then decode and
// cross-check (endpoint, trans_id) by hand since wait_for itself has
// no way to prefix-match on them (they don't sit at payload offset 0).
//
// This is a documented weakness, not a bug: concurrent AfDataRequest
// calls can have their confirms cross-matched, because the waiter
// claims the first DATA_CONFIRM frame regardless of which request it
// actually answers. Callers that need to run concurrent data requests
// safely must serialize them themselves.
func (m *Mediator) AfDataRequest(req DataRequest) error {
	payload := make([]byte, 0, 11+len(req.Data))
	payload = append(payload, encodeShortAddress(req.DstAddr)...)
	payload = append(payload, req.DstEP, req.SrcEP)
	clusterBuf := make([]byte, 2)
	putUint16(clusterBuf, req.ClusterID)
	payload = append(payload, clusterBuf...)
	payload = append(payload, req.TransID, req.Options, req.Radius, uint8(len(req.Data)))
	payload = append(payload, req.Data...)

	resp, err := m.SendSREQ(cmdAfDataRequest, payload)
	if err != nil {
		return err
	}
	if err := CheckOnlyStatus(resp); err != nil {
		return err
	}

	confirm, err := m.WaitFor(FrameTypeAREQ, commandAfDataConfirm, defaultAfDataConfirmTimeout, nil)
	if err != nil {
		return err
	}
	return checkDataConfirm(confirm, req.DstEP, req.TransID)
}

func checkDataConfirm(payload []byte, wantEndpoint, wantTransID uint8) error {
	r := newByteReader(payload)
	status, err := r.readUint8()
	if err != nil {
		return err
	}
	endpoint, err := r.readUint8()
	if err != nil {
		return err
	}
	transID, err := r.readUint8()
	if err != nil {
		return err
	}
	if endpoint != wantEndpoint || transID != wantTransID {
		return newProtocolError("DATA_CONFIRM (endpoint=0x%02x, trans_id=0x%02x) does not match request (endpoint=0x%02x, trans_id=0x%02x)",
			endpoint, transID, wantEndpoint, wantTransID)
	}
	if status != 0x00 {
		return &ZnpStatusError{Code: status}
	}
	return nil
}

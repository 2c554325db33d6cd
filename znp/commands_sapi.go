package znp

// SAPI subsystem command IDs used by this façade.
var (
	cmdSapiReadConfiguration  = Command{Subsystem: SubsystemSAPI, ID: 0x04}
	cmdSapiWriteConfiguration = Command{Subsystem: SubsystemSAPI, ID: 0x05}
	cmdSapiGetDeviceInfo      = Command{Subsystem: SubsystemSAPI, ID: 0x06}
)

// ConfigurationOption identifies a SAPI configuration parameter.
// Distinct from NvItemId even though both ultimately key NV storage:
// SAPI's configuration ids are a curated subset the application layer
// is meant to touch, while NvItemId spans the raw NV address space
// SYS_OSAL_NV_* exposes.
type ConfigurationOption uint8

const (
	ConfigPanID           ConfigurationOption = 0x83
	ConfigChanList        ConfigurationOption = 0x84
	ConfigLogicalType     ConfigurationOption = 0x87
	ConfigPrecfgKey       ConfigurationOption = 0x62
	ConfigPrecfgKeyEnable ConfigurationOption = 0x63
	ConfigSecurityMode    ConfigurationOption = 0x64
)

// SapiReadConfiguration reads a SAPI configuration parameter's raw
// bytes; the caller decodes them according to which option was asked
// for, since each option's width differs.
func (m *Mediator) SapiReadConfiguration(option ConfigurationOption) ([]byte, error) {
	resp, err := m.SendSREQ(cmdSapiReadConfiguration, []byte{uint8(option)})
	if err != nil {
		return nil, err
	}
	body, err := CheckStatus(resp)
	if err != nil {
		return nil, err
	}
	if len(body) < 1 {
		return nil, newProtocolError("SAPI_READ_CONFIGURATION missing length byte")
	}
	n := int(body[0])
	if len(body)-1 < n {
		return nil, newDecodeError("SAPI_READ_CONFIGURATION declares %d bytes, only %d remain", n, len(body)-1)
	}
	return body[1 : 1+n], nil
}

// SapiWriteConfiguration writes value as a SAPI configuration
// parameter.
func (m *Mediator) SapiWriteConfiguration(option ConfigurationOption, value []byte) error {
	payload := append([]byte{uint8(option), uint8(len(value))}, value...)
	resp, err := m.SendSREQ(cmdSapiWriteConfiguration, payload)
	if err != nil {
		return err
	}
	return CheckOnlyStatus(resp)
}

// DeviceInfoParam selects which runtime field SAPI_GET_DEVICE_INFO
// reports; the device echoes the same selector back in its SRSP so a
// caller firing several of these can tell the replies apart.
type DeviceInfoParam uint8

const (
	DeviceInfoState       DeviceInfoParam = 0x00
	DeviceInfoIEEEAddr    DeviceInfoParam = 0x01
	DeviceInfoShortAddr   DeviceInfoParam = 0x02
	DeviceInfoParentShort DeviceInfoParam = 0x03
	DeviceInfoParentIEEE  DeviceInfoParam = 0x04
	DeviceInfoChannel     DeviceInfoParam = 0x05
	DeviceInfoPanID       DeviceInfoParam = 0x06
	DeviceInfoExtPanID    DeviceInfoParam = 0x07
)

// DeviceInfo bundles the fields a full device-info query assembles out
// of individual SapiGetDeviceInfo calls.
type DeviceInfo struct {
	State       DeviceState
	IEEEAddr    IEEEAddress
	ShortAddr   ShortAddress
	ParentShort ShortAddress
	ParentIEEE  IEEEAddress
	Channel     uint8
	PanID       uint16
	ExtPanID    uint64
}

// SapiGetDeviceInfo asks for a single runtime parameter selected by
// param. The SRSP always echoes the selector as its first byte
// followed by an 8-byte value field, of which only the bytes relevant
// to param are meaningful; the caller decodes accordingly.
func (m *Mediator) SapiGetDeviceInfo(param DeviceInfoParam) ([]byte, error) {
	resp, err := m.SendSREQ(cmdSapiGetDeviceInfo, []byte{uint8(param)})
	if err != nil {
		return nil, err
	}
	r := newByteReader(resp)
	echoed, err := r.readUint8()
	if err != nil {
		return nil, err
	}
	if DeviceInfoParam(echoed) != param {
		return nil, newProtocolError("SAPI_GET_DEVICE_INFO echoed param 0x%02x, requested 0x%02x", echoed, param)
	}
	value := r.readRemaining()
	return value, nil
}

// GetDeviceInfo assembles a full DeviceInfo by querying each runtime
// parameter in turn.
func (m *Mediator) GetDeviceInfo() (DeviceInfo, error) {
	var info DeviceInfo

	state, err := m.currentDeviceState()
	if err != nil {
		return info, err
	}
	info.State = state

	ieee, err := m.SapiGetDeviceInfo(DeviceInfoIEEEAddr)
	if err != nil {
		return info, err
	}
	if info.IEEEAddr, err = decodeDeviceInfoIEEEAddress(ieee); err != nil {
		return info, err
	}

	short, err := m.SapiGetDeviceInfo(DeviceInfoShortAddr)
	if err != nil {
		return info, err
	}
	if info.ShortAddr, err = decodeDeviceInfoShortAddress(short); err != nil {
		return info, err
	}

	parentShort, err := m.SapiGetDeviceInfo(DeviceInfoParentShort)
	if err != nil {
		return info, err
	}
	if info.ParentShort, err = decodeDeviceInfoShortAddress(parentShort); err != nil {
		return info, err
	}

	parentIEEE, err := m.SapiGetDeviceInfo(DeviceInfoParentIEEE)
	if err != nil {
		return info, err
	}
	if info.ParentIEEE, err = decodeDeviceInfoIEEEAddress(parentIEEE); err != nil {
		return info, err
	}

	channel, err := m.SapiGetDeviceInfo(DeviceInfoChannel)
	if err != nil {
		return info, err
	}
	if len(channel) < 1 {
		return info, newProtocolError("SAPI_GET_DEVICE_INFO channel value missing")
	}
	info.Channel = channel[0]

	panID, err := m.SapiGetDeviceInfo(DeviceInfoPanID)
	if err != nil {
		return info, err
	}
	panIDValue, err := newByteReader(panID).readUint16()
	if err != nil {
		return info, newProtocolError("SAPI_GET_DEVICE_INFO pan id value missing")
	}
	info.PanID = panIDValue

	extPanID, err := m.SapiGetDeviceInfo(DeviceInfoExtPanID)
	if err != nil {
		return info, err
	}
	extPanIDValue, err := newByteReader(extPanID).readUint64()
	if err != nil {
		return info, newProtocolError("SAPI_GET_DEVICE_INFO ext pan id value missing")
	}
	info.ExtPanID = extPanIDValue

	return info, nil
}

func decodeDeviceInfoIEEEAddress(value []byte) (IEEEAddress, error) {
	addr, err := newByteReader(value).readIEEEAddress()
	if err != nil {
		return 0, newProtocolError("SAPI_GET_DEVICE_INFO IEEE address value missing")
	}
	return addr, nil
}

func decodeDeviceInfoShortAddress(value []byte) (ShortAddress, error) {
	addr, err := newByteReader(value).readShortAddress()
	if err != nil {
		return 0, newProtocolError("SAPI_GET_DEVICE_INFO short address value missing")
	}
	return addr, nil
}

// currentDeviceState is the piece WaitForState needs before it
// subscribes: today's reported state, via SAPI_GET_DEVICE_INFO.
func (m *Mediator) currentDeviceState() (DeviceState, error) {
	value, err := m.SapiGetDeviceInfo(DeviceInfoState)
	if err != nil {
		return 0, err
	}
	if len(value) < 1 {
		return 0, newProtocolError("SAPI_GET_DEVICE_INFO state value missing")
	}
	return DeviceState(value[0]), nil
}

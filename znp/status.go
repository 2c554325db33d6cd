package znp

// CheckStatus standardizes the "status byte then optional body"
// convention pervasive in ZNP SRSPs: it fails with a ProtocolError on
// an empty response, fails with ZnpStatusError on a non-success first
// byte, and otherwise returns the body following the status byte.
func CheckStatus(response []byte) ([]byte, error) {
	if len(response) < 1 {
		return nil, newProtocolError("empty response")
	}
	if response[0] != 0x00 {
		return nil, &ZnpStatusError{Code: response[0]}
	}
	return response[1:], nil
}

// CheckOnlyStatus is CheckStatus for SRSPs whose body is expected to
// be nothing but the status byte.
func CheckOnlyStatus(response []byte) error {
	body, err := CheckStatus(response)
	if err != nil {
		return err
	}
	if len(body) != 0 {
		return newProtocolError("expected empty body after status, got %d bytes", len(body))
	}
	return nil
}

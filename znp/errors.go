package znp

import "fmt"

// ErrTimeout is returned by a waiter whose timer fired before any frame
// matched it.
var ErrTimeout = fmt.Errorf("znp: timeout waiting for response")

// ZnpStatusError wraps a non-success status byte found in an SRSP body.
type ZnpStatusError struct {
	Code byte
}

func (e *ZnpStatusError) Error() string {
	return fmt.Sprintf("znp: status 0x%02x", e.Code)
}

// RPCError is raised when the device rejects an SREQ via an out-of-band
// RPC_Error frame that correlates back to the request.
type RPCError struct {
	Code byte
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("znp: RPC error 0x%02x", e.Code)
}

// ProtocolError covers malformed or inconsistent protocol-level data:
// empty responses, unexpected trailing bytes, prefix mismatches, or an
// AF_DATA_CONFIRM whose (endpoint, trans id) disagrees with the request
// that's waiting for it.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("znp: protocol error: %s", e.Reason)
}

func newProtocolError(format string, args ...any) error {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}

// DecodeError indicates a payload did not match the shape an event or
// command response expected.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("znp: decode error: %s", e.Reason)
}

func newDecodeError(format string, args ...any) error {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}

// InvalidState is raised by WaitForState when the device reports or
// transitions into a state outside the caller's allowed corridor.
type InvalidState struct {
	State DeviceState
}

func (e *InvalidState) Error() string {
	return fmt.Sprintf("znp: invalid device state %s", e.State)
}

// TransportError wraps a failure surfaced by the raw transport layer,
// propagated unchanged.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("znp: transport error: %s", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

package znp

// RawTransport is the raw framing layer this mediator sits on top of.
// It is an external collaborator: byte-level SOF/length/FCS framing
// over a serial port lives below this interface (see package
// transport), and the mediator treats payloads as opaque byte vectors.
//
// Implementations deliver every inbound frame to the Mediator via
// Deliver (package transport's SerialTransport.Run does this from its
// read loop, in the style of the teacher's serial3.Uart.Loop feeding a
// channel the Zdo type drains);
// SendFrame must serialize concurrent sends (either by being
// intrinsically single-threaded, or by guarding internally), since the
// mediator funnels every transmit through it.
type RawTransport interface {
	// SendFrame transmits a frame. It must not fail for protocol
	// reasons; transport failures are out-of-band concerns for the
	// caller (e.g. a closed port), not something SendFrame blocks on.
	SendFrame(frame Frame) error
}

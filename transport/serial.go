// Package transport implements the raw ZNP framing layer: SOF-delimited,
// length-prefixed, FCS-checked frames over a serial port, generalized
// from a hardcoded single-device UART reader into a reusable codec plus
// a read loop that feeds a znp.Mediator.
package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/tarm/serial"

	"znp/znp"
)

// sof is the start-of-frame marker every ZNP UART frame begins with.
const sof byte = 0xFE

// maxPayloadLen bounds a single frame's payload; the vendor protocol
// never exceeds this over UART.
const maxPayloadLen = 250

// Config describes how to open the serial port the ZNP device is
// attached to.
type Config struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration
}

// SerialTransport implements znp.RawTransport over a real serial port.
type SerialTransport struct {
	port *serial.Port
	log  zerolog.Logger
}

// Open opens the configured serial port. Baud defaults to 115200 and
// ReadTimeout to 3s when left zero, matching the values the teacher's
// own UART reader hardcodes.
func Open(cfg Config, log zerolog.Logger) (*SerialTransport, error) {
	if cfg.Baud == 0 {
		cfg.Baud = 115200
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 3 * time.Second
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}
	return &SerialTransport{port: port, log: log}, nil
}

// SendFrame encodes frame as SOF, LEN, CMD0, CMD1, DATA, FCS and writes
// it to the port.
func (t *SerialTransport) SendFrame(frame znp.Frame) error {
	if len(frame.Payload) > maxPayloadLen {
		return fmt.Errorf("transport: payload length %d exceeds %d", len(frame.Payload), maxPayloadLen)
	}
	buf := encodeFrame(frame)
	n, err := t.port.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("transport: short write (%d of %d bytes)", n, len(buf))
	}
	return nil
}

// Close flushes and closes the underlying port.
func (t *SerialTransport) Close() error {
	t.port.Flush()
	return t.port.Close()
}

func encodeFrame(frame znp.Frame) []byte {
	cmd0 := uint8(frame.Type)<<4 | uint8(frame.Command.Subsystem)
	buf := make([]byte, 0, 5+len(frame.Payload))
	buf = append(buf, sof, byte(len(frame.Payload)), cmd0, frame.Command.ID)
	buf = append(buf, frame.Payload...)
	buf = append(buf, fcs(buf[1:]))
	return buf
}

// fcs XORs every byte from LEN through the end of DATA (i.e. everything
// except SOF and the FCS byte itself).
func fcs(body []byte) byte {
	var sum byte
	for _, b := range body {
		sum ^= b
	}
	return sum
}

// Run reads frames from the port until ctx is cancelled or a read
// returns io.EOF, delivering each decoded frame to mediator.Deliver.
// Read timeouts (the teacher's Uart.Loop polling style) are treated as
// "nothing arrived yet", not a failure; any other error (such as an
// FCS mismatch) is logged, the frame is dropped and reading goes on.
func (t *SerialTransport) Run(ctx context.Context, mediator *znp.Mediator) error {
	reader := bufio.NewReader(t.port)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := readFrame(reader)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if err == io.EOF {
				return err
			}
			t.log.Warn().Err(err).Msg("dropping malformed ZNP frame")
			continue
		}
		mediator.Deliver(frame)
	}
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}

// readFrame blocks until one complete, FCS-valid frame is read, or an
// I/O error (including read timeout) occurs.
func readFrame(r *bufio.Reader) (znp.Frame, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return znp.Frame{}, err
		}
		if b != sof {
			continue
		}
		break
	}

	header := make([]byte, 3)
	if _, err := io.ReadFull(r, header); err != nil {
		return znp.Frame{}, err
	}
	length, cmd0, cmd1 := header[0], header[1], header[2]

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return znp.Frame{}, err
		}
	}

	gotFCS, err := r.ReadByte()
	if err != nil {
		return znp.Frame{}, err
	}

	body := make([]byte, 0, 2+len(payload))
	body = append(body, length, cmd0, cmd1)
	body = append(body, payload...)
	if want := fcs(body); want != gotFCS {
		return znp.Frame{}, fmt.Errorf("transport: FCS mismatch (want 0x%02x, got 0x%02x)", want, gotFCS)
	}

	frame := znp.Frame{
		Type:    znp.FrameType(cmd0 >> 4),
		Command: znp.Command{Subsystem: znp.Subsystem(cmd0 & 0x0F), ID: cmd1},
		Payload: payload,
	}
	return frame, nil
}

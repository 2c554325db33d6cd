package transport

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"znp/znp"
)

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	frame := znp.Frame{
		Type:    znp.FrameTypeSREQ,
		Command: znp.Command{Subsystem: znp.SubsystemSYS, ID: 0x01},
		Payload: []byte{0x01, 0x02, 0x03},
	}

	encoded := encodeFrame(frame)
	assert.Equal(t, sof, encoded[0])
	assert.Equal(t, byte(len(frame.Payload)), encoded[1])

	decoded, err := readFrame(bufio.NewReader(bytes.NewReader(encoded)))
	require.NoError(t, err)
	assert.Equal(t, frame, decoded)
}

func TestEncodeDecodeEmptyPayload(t *testing.T) {
	frame := znp.Frame{
		Type:    znp.FrameTypeAREQ,
		Command: znp.Command{Subsystem: znp.SubsystemZDO, ID: 0xC0},
	}

	encoded := encodeFrame(frame)
	decoded, err := readFrame(bufio.NewReader(bytes.NewReader(encoded)))
	require.NoError(t, err)
	assert.Equal(t, frame.Type, decoded.Type)
	assert.Equal(t, frame.Command, decoded.Command)
	assert.Empty(t, decoded.Payload)
}

func TestReadFrameDetectsFCSMismatch(t *testing.T) {
	frame := znp.Frame{
		Type:    znp.FrameTypeSRSP,
		Command: znp.Command{Subsystem: znp.SubsystemSYS, ID: 0x01},
		Payload: []byte{0x79, 0x00},
	}
	encoded := encodeFrame(frame)
	encoded[len(encoded)-1] ^= 0xFF // corrupt the FCS byte

	_, err := readFrame(bufio.NewReader(bytes.NewReader(encoded)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FCS mismatch")
}

func TestReadFrameSkipsNoiseBeforeSOF(t *testing.T) {
	frame := znp.Frame{
		Type:    znp.FrameTypeSREQ,
		Command: znp.Command{Subsystem: znp.SubsystemSYS, ID: 0x02},
	}
	noisy := append([]byte{0x00, 0x11, 0x22}, encodeFrame(frame)...)

	decoded, err := readFrame(bufio.NewReader(bytes.NewReader(noisy)))
	require.NoError(t, err)
	assert.Equal(t, frame.Command, decoded.Command)
}

/*
znp - ZNP API mediator for TI Z-Stack network processors
MIT License
*/

// Package znp implements the request/response and event dispatch core
// that speaks the TI Z-Stack Network Processor (ZNP) protocol over a
// framed byte transport. It does not know how to frame bytes on the
// wire (see the RawTransport interface) or how individual payload
// fields are encoded; it only correlates SREQ/SRSP pairs, attaches
// AREQ follow-ups to the request that triggered them, and fans out
// unsolicited AREQ frames to subscribers.
package znp

import "fmt"

// FrameType is the ZNP command-type nibble.
type FrameType uint8

const (
	FrameTypePoll FrameType = 0
	FrameTypeSREQ FrameType = 2
	FrameTypeAREQ FrameType = 4
	FrameTypeSRSP FrameType = 6
)

func (t FrameType) String() string {
	switch t {
	case FrameTypePoll:
		return "POLL"
	case FrameTypeSREQ:
		return "SREQ"
	case FrameTypeAREQ:
		return "AREQ"
	case FrameTypeSRSP:
		return "SRSP"
	default:
		return fmt.Sprintf("FrameType(%d)", uint8(t))
	}
}

// Subsystem is the ZNP command subsystem nibble. RPCError is the
// pseudo-subsystem used for out-of-band protocol error frames.
type Subsystem uint8

const (
	SubsystemRPCError Subsystem = 0
	SubsystemSYS      Subsystem = 1
	SubsystemMAC      Subsystem = 2
	SubsystemNWK      Subsystem = 3
	SubsystemAF       Subsystem = 4
	SubsystemZDO      Subsystem = 5
	SubsystemSAPI     Subsystem = 6
	SubsystemUTIL     Subsystem = 7
	SubsystemDebug    Subsystem = 8
	SubsystemApp      Subsystem = 9
	SubsystemAppCnf   Subsystem = 15
)

func (s Subsystem) String() string {
	switch s {
	case SubsystemRPCError:
		return "RPC_Error"
	case SubsystemSYS:
		return "SYS"
	case SubsystemMAC:
		return "MAC"
	case SubsystemNWK:
		return "NWK"
	case SubsystemAF:
		return "AF"
	case SubsystemZDO:
		return "ZDO"
	case SubsystemSAPI:
		return "SAPI"
	case SubsystemUTIL:
		return "UTIL"
	case SubsystemDebug:
		return "DEBUG"
	case SubsystemApp:
		return "APP"
	case SubsystemAppCnf:
		return "APP_CNF"
	default:
		return fmt.Sprintf("Subsystem(%d)", uint8(s))
	}
}

// Command identifies a ZNP command within a subsystem: the command ID
// byte, scoped to its subsystem. Unlike the vendor's packed
// CMD0/CMD1 wire representation, this keeps subsystem and ID apart
// since almost everything in this package keys off one or the other.
type Command struct {
	Subsystem Subsystem
	ID        uint8
}

func (c Command) String() string {
	return fmt.Sprintf("%s.0x%02x", c.Subsystem, c.ID)
}

// rpcErrorCommand is the fixed pseudo-command RPC_Error frames are
// reported under: subsystem RPC_Error, command id 0.
var rpcErrorCommand = Command{Subsystem: SubsystemRPCError, ID: 0}

// Frame is the (type, command, payload) triple delivered by the raw
// framing layer and handed to Mediator.Deliver, or transmitted via
// RawTransport.SendFrame.
type Frame struct {
	Type    FrameType
	Command Command
	Payload []byte
}

func (f Frame) String() string {
	return fmt.Sprintf("%s %s %x", f.Type, f.Command, f.Payload)
}

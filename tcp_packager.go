package modbus

import (
	"encoding/binary"
	"fmt"
)

// Modbus TCP Protocol Constants
const (
	TCPHeaderLength   = 7                              // MBAP header length in bytes
	MaxPDULength      = 253                            // Maximum PDU length according to Modbus spec
	MaxTCPFrameLength = TCPHeaderLength + MaxPDULength // Maximum complete frame length

	// ProtocolIdentifierTCP is the only protocol identifier defined for
	// Modbus TCP. Every frame carries it; every response must echo it.
	ProtocolIdentifierTCP uint16 = 0x0000
)

// TCPPackager handles Modbus TCP packet packing and unpacking.
type TCPPackager struct{}

// NewTCPPackager creates a new TCPPackager.
func NewTCPPackager() *TCPPackager {
	return &TCPPackager{}
}

// Pack packs a Modbus PDU into a complete TCP frame.
// The frame format is: MBAP (7 bytes) + PDU (variable length).
// MBAP format: Transaction Identifier (2 bytes) + Protocol Identifier (2 bytes) + Length (2 bytes) + Unit Identifier (1 byte).
// The Length field covers the Unit Identifier plus the PDU.
func (p *TCPPackager) Pack(transactionID uint16, unitID uint8, pdu []byte) ([]byte, error) {
	if len(pdu) == 0 {
		return nil, fmt.Errorf("%w: PDU cannot be empty", ErrMalformedFrame)
	}
	if len(pdu) > MaxPDULength {
		return nil, fmt.Errorf("%w: PDU length %d exceeds maximum %d bytes",
			ErrMalformedFrame, len(pdu), MaxPDULength)
	}

	frame := make([]byte, TCPHeaderLength+len(pdu))
	binary.BigEndian.PutUint16(frame[0:2], transactionID)
	binary.BigEndian.PutUint16(frame[2:4], ProtocolIdentifierTCP)
	binary.BigEndian.PutUint16(frame[4:6], uint16(len(pdu)+1))
	frame[6] = unitID
	copy(frame[7:], pdu)

	return frame, nil
}

// Unpack unpacks a complete Modbus TCP frame into a Transaction Identifier,
// Unit Identifier, and PDU, validating the envelope fields.
func (p *TCPPackager) Unpack(frame []byte) (transactionID uint16, unitID uint8, pdu []byte, err error) {
	if len(frame) < TCPHeaderLength+1 {
		err = fmt.Errorf("%w: frame length %d below minimum %d bytes",
			ErrMalformedFrame, len(frame), TCPHeaderLength+1)
		return
	}
	if len(frame) > MaxTCPFrameLength {
		err = fmt.Errorf("%w: frame length %d exceeds maximum %d bytes",
			ErrMalformedFrame, len(frame), MaxTCPFrameLength)
		return
	}

	transactionID = binary.BigEndian.Uint16(frame[0:2])
	protocolID := binary.BigEndian.Uint16(frame[2:4])
	length := binary.BigEndian.Uint16(frame[4:6])
	unitID = frame[6]
	pdu = frame[7:]

	if protocolID != ProtocolIdentifierTCP {
		err = fmt.Errorf("%w: protocol identifier 0x%04X, expected 0x%04X",
			ErrFrameMismatch, protocolID, ProtocolIdentifierTCP)
		return
	}

	// Length = Unit ID (1 byte) + PDU length
	if length != uint16(len(pdu)+1) {
		err = fmt.Errorf("%w: length field %d, actual frame carries %d",
			ErrMalformedFrame, length, len(pdu)+1)
		return
	}

	return
}

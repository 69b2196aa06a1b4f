// Copyright (C) 2025  wwhai
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

package modbus

import (
	"errors"
	"testing"
)

func TestTCPPackager_PackUnpack(t *testing.T) {
	p := NewTCPPackager()
	transactionID := uint16(0x1234)
	unitID := uint8(0x01)
	pdu := []byte{0x03, 0x00, 0x00, 0x00, 0x01}

	frame, err := p.Pack(transactionID, unitID, pdu)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	assertBytesEqual(t, []byte{0x12, 0x34, 0x00, 0x00, 0x00, 0x06, 0x01, 0x03, 0x00, 0x00, 0x00, 0x01}, frame)

	gotTID, gotUID, gotPDU, err := p.Unpack(frame)
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	if gotTID != transactionID {
		t.Errorf("transactionID mismatch: got %04x, want %04x", gotTID, transactionID)
	}
	if gotUID != unitID {
		t.Errorf("unitID mismatch: got %02x, want %02x", gotUID, unitID)
	}
	assertBytesEqual(t, pdu, gotPDU)
}

func TestTCPPackager_Pack_Invalid(t *testing.T) {
	p := NewTCPPackager()
	_, err := p.Pack(1, 1, nil)
	if !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("Pack should fail for empty PDU, got %v", err)
	}
	_, err = p.Pack(1, 1, make([]byte, MaxPDULength+1))
	if !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("Pack should fail for PDU exceeding max length, got %v", err)
	}
	// exactly at the limit is still valid
	if _, err = p.Pack(1, 1, make([]byte, MaxPDULength)); err != nil {
		t.Errorf("Pack failed for maximum-length PDU: %v", err)
	}
}

func TestTCPPackager_Unpack_Invalid(t *testing.T) {
	p := NewTCPPackager()
	// Too short
	_, _, _, err := p.Unpack([]byte{1, 2, 3})
	if !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("Unpack should fail for short frame, got %v", err)
	}
	// Too long
	_, _, _, err = p.Unpack(make([]byte, MaxTCPFrameLength+1))
	if !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("Unpack should fail for long frame, got %v", err)
	}
	// Invalid protocol ID
	frame, _ := p.Pack(1, 1, []byte{0x03, 0x00})
	frame[2] = 0xFF
	frame[3] = 0xFF
	_, _, _, err = p.Unpack(frame)
	if !errors.Is(err, ErrFrameMismatch) {
		t.Errorf("Unpack should fail for invalid protocol ID, got %v", err)
	}
	// Length field disagreeing with the frame
	frame, _ = p.Pack(1, 1, []byte{0x03, 0x00})
	frame[4] = 0x00
	frame[5] = 0x00
	_, _, _, err = p.Unpack(frame)
	if !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("Unpack should fail for zero length field, got %v", err)
	}
}

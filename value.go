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
	"encoding/binary"
	"fmt"
)

// On-wire values for a single coil write (function 0x05). Anything else
// in a write confirmation is a protocol violation.
const (
	coilOn  uint16 = 0xFF00
	coilOff uint16 = 0x0000
)

// PackBits packs coil or discrete input states into bytes, 8 states per
// byte, least significant bit first. Unused bits of the last byte stay zero.
func PackBits(bits []bool) []byte {
	packed := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b {
			packed[i/8] |= 1 << (i % 8)
		}
	}
	return packed
}

// UnpackBits unpacks exactly count states from a packed bit payload.
// Padding bits beyond count are ignored.
func UnpackBits(data []byte, count uint16) ([]bool, error) {
	need := (int(count) + 7) / 8
	if len(data) < need {
		return nil, fmt.Errorf("%w: need %d bytes for %d bits, got %d",
			ErrMalformedPayload, need, count, len(data))
	}
	bits := make([]bool, count)
	for i := range bits {
		bits[i] = data[i/8]&(1<<(i%8)) != 0
	}
	return bits, nil
}

// PackRegisters packs 16-bit register values into big-endian byte pairs.
func PackRegisters(values []uint16) []byte {
	packed := make([]byte, 2*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint16(packed[2*i:], v)
	}
	return packed
}

// UnpackRegisters unpacks big-endian byte pairs into 16-bit register values.
func UnpackRegisters(data []byte) ([]uint16, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: register payload length %d is not a multiple of 2",
			ErrMalformedPayload, len(data))
	}
	values := make([]uint16, len(data)/2)
	for i := range values {
		values[i] = binary.BigEndian.Uint16(data[2*i:])
	}
	return values, nil
}

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

// Package modbus implements the master (client) side of the Modbus TCP
// protocol: PDU encoding/decoding, MBAP framing with transaction
// correlation, and typed conversion between packed payloads and
// coil/register values.
package modbus

import (
	"io"
)

// ModbusApi defines the interface for Modbus master operations.
// All methods perform exactly one request/response round trip and are
// safe for concurrent use; calls on the same connection are serialized
// because Modbus TCP devices handle one transaction at a time.
type ModbusApi interface {
	SetLogger(io.Writer) // SetLogger sets the logger for the client

	// Standard methods
	ReadCoils(slaveID uint8, startAddress, quantity uint16) ([]bool, error)              // ReadCoils reads multiple coils
	ReadDiscreteInputs(slaveID uint8, startAddress, quantity uint16) ([]bool, error)     // ReadDiscreteInputs reads multiple discrete inputs
	ReadHoldingRegisters(slaveID uint8, startAddress, quantity uint16) ([]uint16, error) // ReadHoldingRegisters reads multiple holding registers
	ReadInputRegisters(slaveID uint8, startAddress, quantity uint16) ([]uint16, error)   // ReadInputRegisters reads multiple input registers
	WriteSingleCoil(slaveID uint8, address uint16, value bool) error                     // WriteSingleCoil writes a single coil
	WriteSingleRegister(slaveID uint8, address, value uint16) error                      // WriteSingleRegister writes a single register
	WriteMultipleCoils(slaveID uint8, startAddress uint16, values []bool) error          // WriteMultipleCoils writes multiple coils
	WriteMultipleRegisters(slaveID uint8, startAddress uint16, values []uint16) error    // WriteMultipleRegisters writes multiple registers

	// Extended methods
	ReadExceptionStatus(slaveID uint8) (uint8, error)       // ReadExceptionStatus reads the device status byte (function 0x07)
	ExecuteRaw(slaveID uint8, pdu []byte) ([]byte, error)   // ExecuteRaw runs one round trip with a caller-built PDU

	Close() error // Close shuts the underlying connection down
}

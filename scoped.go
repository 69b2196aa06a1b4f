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

import "fmt"

// CoilRestore selects the value a ScopedCoil applies on Restore.
type CoilRestore int

const (
	CoilRestoreOn     CoilRestore = iota // set the coil On
	CoilRestoreOff                       // set the coil Off
	CoilRestoreToggle                    // invert the current value
)

// ScopedCoil applies a restore action to a coil when Restore is called,
// typically deferred right after construction:
//
//	sc := NewScopedCoil(client, 1, 10, CoilRestoreOff)
//	defer sc.Restore()
type ScopedCoil struct {
	client  ModbusApi
	slaveID uint8
	address uint16
	action  CoilRestore
}

// NewScopedCoil creates a ScopedCoil for the given coil address.
func NewScopedCoil(client ModbusApi, slaveID uint8, address uint16, action CoilRestore) *ScopedCoil {
	return &ScopedCoil{client: client, slaveID: slaveID, address: address, action: action}
}

// Restore reads the current coil state and writes the restore value.
func (s *ScopedCoil) Restore() error {
	values, err := s.client.ReadCoils(s.slaveID, s.address, 1)
	if err != nil {
		return err
	}
	if len(values) != 1 {
		return fmt.Errorf("modbus: scoped coil restore read %d values, expected 1", len(values))
	}
	var target bool
	switch s.action {
	case CoilRestoreOn:
		target = true
	case CoilRestoreOff:
		target = false
	case CoilRestoreToggle:
		target = !values[0]
	}
	return s.client.WriteSingleCoil(s.slaveID, s.address, target)
}

// RegisterRestoreFunc maps the current register value onto the value a
// ScopedRegister writes back on Restore.
type RegisterRestoreFunc func(current uint16) uint16

// Predefined restore actions for ScopedRegister.
var (
	RegisterRestoreZero      RegisterRestoreFunc = func(uint16) uint16 { return 0 }
	RegisterRestoreIncrement RegisterRestoreFunc = func(v uint16) uint16 { return v + 1 }
	RegisterRestoreDecrement RegisterRestoreFunc = func(v uint16) uint16 { return v - 1 }
)

// RegisterRestoreValue returns an action that writes a fixed value.
func RegisterRestoreValue(value uint16) RegisterRestoreFunc {
	return func(uint16) uint16 { return value }
}

// ScopedRegister applies a restore action to a holding register when
// Restore is called, typically deferred right after construction.
type ScopedRegister struct {
	client  ModbusApi
	slaveID uint8
	address uint16
	action  RegisterRestoreFunc
}

// NewScopedRegister creates a ScopedRegister for the given register address.
func NewScopedRegister(client ModbusApi, slaveID uint8, address uint16, action RegisterRestoreFunc) *ScopedRegister {
	return &ScopedRegister{client: client, slaveID: slaveID, address: address, action: action}
}

// Restore reads the current register value, applies the action and writes
// the result back.
func (s *ScopedRegister) Restore() error {
	if s.action == nil {
		return fmt.Errorf("modbus: scoped register has no restore action")
	}
	values, err := s.client.ReadHoldingRegisters(s.slaveID, s.address, 1)
	if err != nil {
		return err
	}
	if len(values) != 1 {
		return fmt.Errorf("modbus: scoped register restore read %d values, expected 1", len(values))
	}
	return s.client.WriteSingleRegister(s.slaveID, s.address, s.action(values[0]))
}

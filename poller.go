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
	"fmt"
	"sync"
	"time"
)

// PollTask describes one cyclic read. Function must be one of the four
// read function codes (0x01..0x04).
type PollTask struct {
	Tag      string // unique label for the task
	SlaveID  uint8
	Function uint8
	Address  uint16
	Quantity uint16
}

// PollResult carries one completed read. Bits is set for coil and discrete
// input tasks, Registers for holding and input register tasks.
type PollResult struct {
	Task      PollTask
	Bits      []bool
	Registers []uint16
	At        time.Time
}

// OnDataFunc is a callback type for pushing poll results.
type OnDataFunc func(PollResult)

// OnErrorFunc is a callback type for error reporting.
type OnErrorFunc func(PollTask, error)

// Poller cycles a fixed task list at a given interval. Reads go through
// the client one at a time, so polling shares the connection cleanly with
// other callers.
type Poller struct {
	client   ModbusApi
	interval time.Duration
	tasks    []PollTask
	onData   OnDataFunc
	onError  OnErrorFunc

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewPoller creates a Poller over the given client. The task list is fixed
// for the lifetime of the poller.
func NewPoller(client ModbusApi, interval time.Duration, tasks []PollTask) *Poller {
	return &Poller{
		client:   client,
		interval: interval,
		tasks:    tasks,
	}
}

// OnData registers the result callback. Must be called before Start.
func (p *Poller) OnData(fn OnDataFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onData = fn
}

// OnError registers the error callback. Must be called before Start.
func (p *Poller) OnError(fn OnErrorFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onError = fn
}

// Start validates the task list and launches the polling goroutine.
func (p *Poller) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return fmt.Errorf("modbus: poller already started")
	}
	if p.interval <= 0 {
		return fmt.Errorf("modbus: poll interval must be positive")
	}
	if len(p.tasks) == 0 {
		return fmt.Errorf("modbus: poller has no tasks")
	}
	tags := make(map[string]bool)
	for _, task := range p.tasks {
		if tags[task.Tag] {
			return fmt.Errorf("modbus: duplicate task tag: %s", task.Tag)
		}
		tags[task.Tag] = true
		switch task.Function {
		case FuncCodeReadCoils, FuncCodeReadDiscreteInputs:
			if err := checkReadQuantity(task.Function, task.Quantity); err != nil {
				return fmt.Errorf("modbus: task %s: %w", task.Tag, err)
			}
		case FuncCodeReadHoldingRegisters, FuncCodeReadInputRegisters:
			if err := checkReadQuantity(task.Function, task.Quantity); err != nil {
				return fmt.Errorf("modbus: task %s: %w", task.Tag, err)
			}
		default:
			return fmt.Errorf("modbus: task %s: function 0x%02X is not pollable", task.Tag, task.Function)
		}
	}

	p.started = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	go p.run()
	return nil
}

// Stop halts polling and waits for the in-flight cycle to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)
	<-doneCh
}

func (p *Poller) run() {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.pollOnce()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.pollOnce()
		}
	}
}

func (p *Poller) pollOnce() {
	for _, task := range p.tasks {
		select {
		case <-p.stopCh:
			return
		default:
		}

		result := PollResult{Task: task, At: time.Now()}
		var err error
		switch task.Function {
		case FuncCodeReadCoils:
			result.Bits, err = p.client.ReadCoils(task.SlaveID, task.Address, task.Quantity)
		case FuncCodeReadDiscreteInputs:
			result.Bits, err = p.client.ReadDiscreteInputs(task.SlaveID, task.Address, task.Quantity)
		case FuncCodeReadHoldingRegisters:
			result.Registers, err = p.client.ReadHoldingRegisters(task.SlaveID, task.Address, task.Quantity)
		case FuncCodeReadInputRegisters:
			result.Registers, err = p.client.ReadInputRegisters(task.SlaveID, task.Address, task.Quantity)
		}
		if err != nil {
			if p.onError != nil {
				p.onError(task, err)
			}
			continue
		}
		if p.onData != nil {
			p.onData(result)
		}
	}
}

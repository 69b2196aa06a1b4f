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
	"sync"
	"testing"
	"time"
)

func TestPollerCollectsResults(t *testing.T) {
	device := &fakeDevice{}
	device.holding[0] = 0x1111
	device.coils[2] = true

	tasks := []PollTask{
		{Tag: "temperature", SlaveID: 1, Function: FuncCodeReadHoldingRegisters, Address: 0, Quantity: 1},
		{Tag: "valve", SlaveID: 1, Function: FuncCodeReadCoils, Address: 2, Quantity: 1},
	}
	poller := NewPoller(device, 5*time.Millisecond, tasks)

	var mu sync.Mutex
	results := make(map[string]PollResult)
	done := make(chan struct{})
	poller.OnData(func(r PollResult) {
		mu.Lock()
		defer mu.Unlock()
		if _, seen := results[r.Task.Tag]; !seen {
			results[r.Task.Tag] = r
			if len(results) == len(tasks) {
				close(done)
			}
		}
	})

	if err := poller.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer poller.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for poll results")
	}

	mu.Lock()
	defer mu.Unlock()
	assertUint16Equal(t, []uint16{0x1111}, results["temperature"].Registers)
	assertBoolEqual(t, []bool{true}, results["valve"].Bits)
}

func TestPollerRejectsBadTasks(t *testing.T) {
	device := &fakeDevice{}

	// duplicate tag
	p := NewPoller(device, time.Millisecond, []PollTask{
		{Tag: "a", SlaveID: 1, Function: FuncCodeReadCoils, Address: 0, Quantity: 1},
		{Tag: "a", SlaveID: 1, Function: FuncCodeReadCoils, Address: 1, Quantity: 1},
	})
	if err := p.Start(); err == nil {
		p.Stop()
		t.Error("Start should reject duplicate tags")
	}

	// write function is not pollable
	p = NewPoller(device, time.Millisecond, []PollTask{
		{Tag: "w", SlaveID: 1, Function: FuncCodeWriteSingleCoil, Address: 0, Quantity: 1},
	})
	if err := p.Start(); err == nil {
		p.Stop()
		t.Error("Start should reject non-read functions")
	}

	// quantity out of range
	p = NewPoller(device, time.Millisecond, []PollTask{
		{Tag: "q", SlaveID: 1, Function: FuncCodeReadHoldingRegisters, Address: 0, Quantity: MaxQuantityReadRegisters + 1},
	})
	if err := p.Start(); err == nil {
		p.Stop()
		t.Error("Start should reject out-of-range quantities")
	}

	// empty task list
	p = NewPoller(device, time.Millisecond, nil)
	if err := p.Start(); err == nil {
		p.Stop()
		t.Error("Start should reject an empty task list")
	}
}

func TestPollerStopIsIdempotent(t *testing.T) {
	device := &fakeDevice{}
	poller := NewPoller(device, time.Millisecond, []PollTask{
		{Tag: "a", SlaveID: 1, Function: FuncCodeReadCoils, Address: 0, Quantity: 1},
	})
	if err := poller.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	poller.Stop()
	poller.Stop() // second call is a no-op

	if err := poller.Start(); err != nil {
		t.Fatalf("restart after Stop failed: %v", err)
	}
	poller.Stop()
}

func TestPollerDoubleStart(t *testing.T) {
	device := &fakeDevice{}
	poller := NewPoller(device, time.Millisecond, []PollTask{
		{Tag: "a", SlaveID: 1, Function: FuncCodeReadCoils, Address: 0, Quantity: 1},
	})
	if err := poller.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer poller.Stop()
	if err := poller.Start(); err == nil {
		t.Error("second Start should fail while running")
	}
}

package modbus

import (
	"encoding/binary"
	"io"
	"sync"
)

// mockConn is an in-memory Conn. Every written request frame is handed to
// the respond function, whose output becomes readable as the response.
type mockConn struct {
	mu      sync.Mutex
	respond func(frame []byte) []byte
	pending []byte
	written [][]byte
	closed  bool
}

func newMockConn(respond func(frame []byte) []byte) *mockConn {
	return &mockConn{respond: respond}
}

func (m *mockConn) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, io.ErrClosedPipe
	}
	frame := append([]byte(nil), p...)
	m.written = append(m.written, frame)
	if m.respond != nil {
		m.pending = append(m.pending, m.respond(frame)...)
	}
	return len(p), nil
}

func (m *mockConn) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, io.ErrClosedPipe
	}
	if len(m.pending) == 0 {
		return 0, io.EOF
	}
	n := copy(p, m.pending)
	m.pending = m.pending[n:]
	return n, nil
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.written)
}

// buildFrame assembles an MBAP frame around pdu.
func buildFrame(transactionID uint16, protocolID uint16, unitID uint8, pdu []byte) []byte {
	frame := make([]byte, TCPHeaderLength+len(pdu))
	binary.BigEndian.PutUint16(frame[0:2], transactionID)
	binary.BigEndian.PutUint16(frame[2:4], protocolID)
	binary.BigEndian.PutUint16(frame[4:6], uint16(len(pdu)+1))
	frame[6] = unitID
	copy(frame[7:], pdu)
	return frame
}

// respondPDU wraps a PDU-level responder into a frame-level one: the
// response frame reuses the request's transaction and unit id.
func respondPDU(build func(reqPDU []byte) []byte) func(frame []byte) []byte {
	return func(frame []byte) []byte {
		transactionID := binary.BigEndian.Uint16(frame[0:2])
		unitID := frame[6]
		return buildFrame(transactionID, ProtocolIdentifierTCP, unitID, build(frame[7:]))
	}
}

// echoResponder returns the request PDU verbatim, as devices do for the
// single write functions.
func echoResponder() func(frame []byte) []byte {
	return respondPDU(func(reqPDU []byte) []byte {
		return append([]byte(nil), reqPDU...)
	})
}

// writeMultipleResponder echoes function code, address and quantity only.
func writeMultipleResponder() func(frame []byte) []byte {
	return respondPDU(func(reqPDU []byte) []byte {
		return append([]byte(nil), reqPDU[:5]...)
	})
}

// exceptionResponder answers every request with an exception PDU.
func exceptionResponder(exceptionCode uint8) func(frame []byte) []byte {
	return respondPDU(func(reqPDU []byte) []byte {
		return []byte{reqPDU[0] | 0x80, exceptionCode}
	})
}

// readResponder answers read requests with the given data payload behind a
// byte count field.
func readResponder(data []byte) func(frame []byte) []byte {
	return respondPDU(func(reqPDU []byte) []byte {
		pdu := make([]byte, 2+len(data))
		pdu[0] = reqPDU[0]
		pdu[1] = byte(len(data))
		copy(pdu[2:], data)
		return pdu
	})
}

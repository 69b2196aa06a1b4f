package modbus

import (
	"io"
	"time"
)

// Conn is the byte stream the frame layer talks to. net.Conn satisfies it,
// as do in-memory pipes used in tests and serial ports opened with
// OpenSerial. Deadline support is optional and discovered at runtime.
type Conn interface {
	io.ReadWriteCloser
}

// deadlineConn is implemented by streams with i/o deadlines (net.Conn).
type deadlineConn interface {
	SetDeadline(t time.Time) error
}

// Transporter frames PDUs for one connection. Send allocates a fresh
// transaction and writes one complete frame; Receive reads one response
// frame back; SendAndReceive combines the two into a single correlated
// round trip. One transaction is in flight at a time.
type Transporter interface {
	Send(unitID uint8, pdu []byte) (uint16, error)
	Receive() (transactionID uint16, unitID uint8, pdu []byte, err error)
	SendAndReceive(unitID uint8, pdu []byte) ([]byte, error)
	Close() error
}

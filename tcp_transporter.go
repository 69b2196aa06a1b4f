package modbus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"
)

// TCPTransporter moves MBAP frames across a byte stream connection.
// It owns the 16-bit transaction counter for that connection; the counter
// wraps to 0 after 65535 and never outlives the connection.
type TCPTransporter struct {
	conn     Conn
	timeout  time.Duration
	packager *TCPPackager
	logger   *log.Logger

	mu            sync.Mutex // one outstanding transaction at a time
	transactionID uint16     // last allocated transaction id, guarded by mu
	closed        bool
}

// NewTCPTransporter creates a new TCPTransporter with the given connection
// and per-operation timeout. A zero timeout disables deadlines.
func NewTCPTransporter(conn Conn, timeout time.Duration, logger io.Writer) *TCPTransporter {
	var tcpLogger *log.Logger
	if logger != nil {
		tcpLogger = log.New(logger, "[TCP] ", log.LstdFlags)
	}
	return &TCPTransporter{
		conn:     conn,
		timeout:  timeout,
		packager: NewTCPPackager(),
		logger:   tcpLogger,
	}
}

// log writes a log message if a logger is configured
func (t *TCPTransporter) log(format string, v ...interface{}) {
	if t.logger != nil {
		t.logger.Printf(format, v...)
	}
}

// setDeadline bounds the next i/o operations when the stream supports it.
func (t *TCPTransporter) setDeadline() error {
	if t.timeout <= 0 {
		return nil
	}
	if dc, ok := t.conn.(deadlineConn); ok {
		return dc.SetDeadline(time.Now().Add(t.timeout))
	}
	return nil
}

// clearDeadline clears the deadline on the connection
func (t *TCPTransporter) clearDeadline() {
	if dc, ok := t.conn.(deadlineConn); ok {
		dc.SetDeadline(time.Time{})
	}
}

// Send allocates the next transaction id, packs the PDU into an MBAP frame
// and writes it out. It returns the transaction id used.
func (t *TCPTransporter) Send(unitID uint8, pdu []byte) (uint16, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sendLocked(unitID, pdu)
}

func (t *TCPTransporter) sendLocked(unitID uint8, pdu []byte) (uint16, error) {
	if t.closed {
		return 0, ErrTransporterClosed
	}

	// uint16 increment wraps to 0 after 65535
	t.transactionID++
	transactionID := t.transactionID

	frame, err := t.packager.Pack(transactionID, unitID, pdu)
	if err != nil {
		return 0, err
	}

	if err := t.setDeadline(); err != nil {
		return 0, fmt.Errorf("modbus: failed to set write deadline: %w", err)
	}
	defer t.clearDeadline()

	t.log("Sending frame: TxID=0x%04X, UnitID=%d, PDU length=%d", transactionID, unitID, len(pdu))
	if _, err := t.conn.Write(frame); err != nil {
		return 0, fmt.Errorf("modbus: write failed: %w", err)
	}
	return transactionID, nil
}

// Receive reads one complete response frame: exactly 7 header bytes first,
// then the number of PDU bytes the header length field declares.
func (t *TCPTransporter) Receive() (transactionID uint16, unitID uint8, pdu []byte, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.receiveLocked()
}

func (t *TCPTransporter) receiveLocked() (transactionID uint16, unitID uint8, pdu []byte, err error) {
	if t.closed {
		err = ErrTransporterClosed
		return
	}

	if err = t.setDeadline(); err != nil {
		err = fmt.Errorf("modbus: failed to set read deadline: %w", err)
		return
	}
	defer t.clearDeadline()

	header := make([]byte, TCPHeaderLength)
	if _, rerr := io.ReadFull(t.conn, header); rerr != nil {
		err = wrapReadError(rerr)
		return
	}

	transactionID = binary.BigEndian.Uint16(header[0:2])
	protocolID := binary.BigEndian.Uint16(header[2:4])
	length := binary.BigEndian.Uint16(header[4:6])
	unitID = header[6]

	if protocolID != ProtocolIdentifierTCP {
		err = fmt.Errorf("%w: protocol identifier 0x%04X, expected 0x%04X",
			ErrFrameMismatch, protocolID, ProtocolIdentifierTCP)
		return
	}

	// Length covers unit id + PDU; the PDU itself is capped at 253 bytes.
	if length < 1 || length > MaxPDULength+1 {
		err = fmt.Errorf("%w: length field %d outside 1..%d",
			ErrMalformedFrame, length, MaxPDULength+1)
		return
	}

	pdu = make([]byte, length-1)
	if _, rerr := io.ReadFull(t.conn, pdu); rerr != nil {
		pdu = nil
		err = wrapReadError(rerr)
		return
	}

	t.log("Received frame: TxID=0x%04X, UnitID=%d, PDU length=%d", transactionID, unitID, len(pdu))
	return
}

// SendAndReceive runs one correlated round trip: the response frame must
// carry the transaction id just allocated and the unit id of the request.
// A mismatch fails the exchange; the stream likely still holds a stale or
// out-of-order response and should not be reused without reconnecting.
func (t *TCPTransporter) SendAndReceive(unitID uint8, requestPDU []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	transactionID, err := t.sendLocked(unitID, requestPDU)
	if err != nil {
		return nil, err
	}

	respTransactionID, respUnitID, respPDU, err := t.receiveLocked()
	if err != nil {
		return nil, err
	}
	if respTransactionID != transactionID {
		return nil, fmt.Errorf("%w: transaction id 0x%04X, expected 0x%04X",
			ErrFrameMismatch, respTransactionID, transactionID)
	}
	if respUnitID != unitID {
		return nil, fmt.Errorf("%w: unit id %d, expected %d",
			ErrFrameMismatch, respUnitID, unitID)
	}
	if len(respPDU) == 0 {
		return nil, fmt.Errorf("%w: frame carries no PDU", ErrMalformedFrame)
	}
	return respPDU, nil
}

// Close closes the underlying connection and marks the transporter as closed.
func (t *TCPTransporter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	t.log("Closing TCP transporter")

	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}

// IsClosed returns whether the transporter is closed.
func (t *TCPTransporter) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// wrapReadError maps an incomplete read onto ErrShortRead; everything else
// is a transport failure surfaced verbatim.
func wrapReadError(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", ErrShortRead, err)
	}
	return fmt.Errorf("modbus: read failed: %w", err)
}

package modbus

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// Client implements the ModbusApi interface over one connection.
// Request and response objects live for a single round trip; the only
// state carried between calls is the transporter's transaction counter.
type Client struct {
	logger      io.Writer
	transporter Transporter
}

// NewTCPClient creates a client speaking Modbus TCP over the given byte
// stream. It returns an instance implementing the ModbusApi interface.
func NewTCPClient(conn Conn, timeout time.Duration) *Client {
	return &Client{
		transporter: NewTCPTransporter(conn, timeout, nil),
	}
}

// NewClient creates a client on top of a caller-supplied Transporter.
func NewClient(transporter Transporter) *Client {
	return &Client{transporter: transporter}
}

// SetLogger sets the logger for request/response traffic.
func (c *Client) SetLogger(logger io.Writer) {
	c.logger = logger
}

// Close shuts the underlying connection down.
func (c *Client) Close() error {
	return c.transporter.Close()
}

// roundTrip performs exactly one send/receive exchange. The transporter
// serializes concurrent callers; Modbus TCP is strictly half duplex.
func (c *Client) roundTrip(slaveID uint8, reqPDU []byte) ([]byte, error) {
	if c.logger != nil {
		fmt.Fprintf(c.logger, "modbus tcp: request slave=%d pdu=% X\n", slaveID, reqPDU)
	}
	respPDU, err := c.transporter.SendAndReceive(slaveID, reqPDU)
	if err != nil {
		if c.logger != nil {
			fmt.Fprintf(c.logger, "modbus tcp: exchange failed slave=%d: %v\n", slaveID, err)
		}
		return nil, err
	}
	if c.logger != nil {
		fmt.Fprintf(c.logger, "modbus tcp: response slave=%d pdu=% X\n", slaveID, respPDU)
	}
	return respPDU, nil
}

// readBits runs one read of packed bit states (functions 0x01 and 0x02).
func (c *Client) readBits(functionCode uint8, slaveID uint8, startAddress, quantity uint16) ([]bool, error) {
	if err := checkReadQuantity(functionCode, quantity); err != nil {
		return nil, err
	}
	respPDU, err := c.roundTrip(slaveID, buildReadRequestPDU(functionCode, startAddress, quantity))
	if err != nil {
		return nil, err
	}
	data, err := decodeReadResponse(functionCode, respPDU, (int(quantity)+7)/8)
	if err != nil {
		return nil, err
	}
	return UnpackBits(data, quantity)
}

// readRegisters runs one read of 16-bit registers (functions 0x03 and 0x04).
func (c *Client) readRegisters(functionCode uint8, slaveID uint8, startAddress, quantity uint16) ([]uint16, error) {
	if err := checkReadQuantity(functionCode, quantity); err != nil {
		return nil, err
	}
	respPDU, err := c.roundTrip(slaveID, buildReadRequestPDU(functionCode, startAddress, quantity))
	if err != nil {
		return nil, err
	}
	data, err := decodeReadResponse(functionCode, respPDU, 2*int(quantity))
	if err != nil {
		return nil, err
	}
	return UnpackRegisters(data)
}

// ReadCoils reads the specified number of coils starting from the given address.
func (c *Client) ReadCoils(slaveID uint8, startAddress, quantity uint16) ([]bool, error) {
	bits, err := c.readBits(FuncCodeReadCoils, slaveID, startAddress, quantity)
	if err != nil {
		return nil, fmt.Errorf("modbus: read coils failed (slave %d, address %d, quantity %d): %w",
			slaveID, startAddress, quantity, err)
	}
	return bits, nil
}

// ReadDiscreteInputs reads the specified number of discrete inputs starting from the given address.
func (c *Client) ReadDiscreteInputs(slaveID uint8, startAddress, quantity uint16) ([]bool, error) {
	bits, err := c.readBits(FuncCodeReadDiscreteInputs, slaveID, startAddress, quantity)
	if err != nil {
		return nil, fmt.Errorf("modbus: read discrete inputs failed (slave %d, address %d, quantity %d): %w",
			slaveID, startAddress, quantity, err)
	}
	return bits, nil
}

// ReadHoldingRegisters reads the specified number of holding registers starting from the given address.
func (c *Client) ReadHoldingRegisters(slaveID uint8, startAddress, quantity uint16) ([]uint16, error) {
	registers, err := c.readRegisters(FuncCodeReadHoldingRegisters, slaveID, startAddress, quantity)
	if err != nil {
		return nil, fmt.Errorf("modbus: read holding registers failed (slave %d, address %d, quantity %d): %w",
			slaveID, startAddress, quantity, err)
	}
	return registers, nil
}

// ReadInputRegisters reads the specified number of input registers starting from the given address.
func (c *Client) ReadInputRegisters(slaveID uint8, startAddress, quantity uint16) ([]uint16, error) {
	registers, err := c.readRegisters(FuncCodeReadInputRegisters, slaveID, startAddress, quantity)
	if err != nil {
		return nil, fmt.Errorf("modbus: read input registers failed (slave %d, address %d, quantity %d): %w",
			slaveID, startAddress, quantity, err)
	}
	return registers, nil
}

// WriteSingleCoil writes a single coil. On the wire true is 0xFF00 and
// false is 0x0000; the device must echo the request exactly.
func (c *Client) WriteSingleCoil(slaveID uint8, address uint16, value bool) error {
	wireValue := coilOff
	if value {
		wireValue = coilOn
	}
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], address)
	binary.BigEndian.PutUint16(data[2:4], wireValue)

	respPDU, err := c.roundTrip(slaveID, buildRequestPDU(FuncCodeWriteSingleCoil, data))
	if err == nil {
		err = decodeWriteEcho(FuncCodeWriteSingleCoil, respPDU, address, wireValue)
	}
	if err != nil {
		return fmt.Errorf("modbus: write single coil failed (slave %d, address %d, value %v): %w",
			slaveID, address, value, err)
	}
	return nil
}

// WriteSingleRegister writes a single register; the device must echo the
// request exactly.
func (c *Client) WriteSingleRegister(slaveID uint8, address, value uint16) error {
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], address)
	binary.BigEndian.PutUint16(data[2:4], value)

	respPDU, err := c.roundTrip(slaveID, buildRequestPDU(FuncCodeWriteSingleRegister, data))
	if err == nil {
		err = decodeWriteEcho(FuncCodeWriteSingleRegister, respPDU, address, value)
	}
	if err != nil {
		return fmt.Errorf("modbus: write single register failed (slave %d, address %d, value %d): %w",
			slaveID, address, value, err)
	}
	return nil
}

// WriteMultipleCoils writes multiple coils starting from the given address.
// The device confirms with an echo of address and quantity.
func (c *Client) WriteMultipleCoils(slaveID uint8, startAddress uint16, values []bool) error {
	err := checkWriteQuantity(FuncCodeWriteMultipleCoils, len(values))
	if err == nil {
		quantity := uint16(len(values))
		packed := PackBits(values)
		data := make([]byte, 5+len(packed))
		binary.BigEndian.PutUint16(data[0:2], startAddress)
		binary.BigEndian.PutUint16(data[2:4], quantity)
		data[4] = byte(len(packed))
		copy(data[5:], packed)

		var respPDU []byte
		respPDU, err = c.roundTrip(slaveID, buildRequestPDU(FuncCodeWriteMultipleCoils, data))
		if err == nil {
			err = decodeWriteEcho(FuncCodeWriteMultipleCoils, respPDU, startAddress, quantity)
		}
	}
	if err != nil {
		return fmt.Errorf("modbus: write multiple coils failed (slave %d, address %d, quantity %d): %w",
			slaveID, startAddress, len(values), err)
	}
	return nil
}

// WriteMultipleRegisters writes multiple registers starting from the given
// address. The device confirms with an echo of address and quantity.
func (c *Client) WriteMultipleRegisters(slaveID uint8, startAddress uint16, values []uint16) error {
	err := checkWriteQuantity(FuncCodeWriteMultipleRegisters, len(values))
	if err == nil {
		quantity := uint16(len(values))
		packed := PackRegisters(values)
		data := make([]byte, 5+len(packed))
		binary.BigEndian.PutUint16(data[0:2], startAddress)
		binary.BigEndian.PutUint16(data[2:4], quantity)
		data[4] = byte(len(packed))
		copy(data[5:], packed)

		var respPDU []byte
		respPDU, err = c.roundTrip(slaveID, buildRequestPDU(FuncCodeWriteMultipleRegisters, data))
		if err == nil {
			err = decodeWriteEcho(FuncCodeWriteMultipleRegisters, respPDU, startAddress, quantity)
		}
	}
	if err != nil {
		return fmt.Errorf("modbus: write multiple registers failed (slave %d, address %d, quantity %d): %w",
			slaveID, startAddress, len(values), err)
	}
	return nil
}

// ReadExceptionStatus reads the device status byte using function 0x07.
func (c *Client) ReadExceptionStatus(slaveID uint8) (uint8, error) {
	respPDU, err := c.roundTrip(slaveID, buildRequestPDU(FuncCodeReadExceptionStatus, nil))
	if err != nil {
		return 0, fmt.Errorf("modbus: read exception status failed (slave %d): %w", slaveID, err)
	}
	body, err := decodeResponsePDU(FuncCodeReadExceptionStatus, respPDU)
	if err != nil {
		return 0, fmt.Errorf("modbus: read exception status failed (slave %d): %w", slaveID, err)
	}
	if len(body) != 1 {
		return 0, fmt.Errorf("modbus: read exception status failed (slave %d): %w: status is %d bytes, expected 1",
			slaveID, ErrMalformedPayload, len(body))
	}
	return body[0], nil
}

// ExecuteRaw runs one round trip with a caller-built PDU, for vendor
// function codes. Device exceptions are decoded; the response PDU is
// otherwise returned as-is, function code included.
func (c *Client) ExecuteRaw(slaveID uint8, pdu []byte) ([]byte, error) {
	if len(pdu) == 0 {
		return nil, fmt.Errorf("modbus: execute raw failed (slave %d): %w: empty request PDU",
			slaveID, ErrMalformedPayload)
	}
	respPDU, err := c.roundTrip(slaveID, pdu)
	if err != nil {
		return nil, fmt.Errorf("modbus: execute raw failed (slave %d, function 0x%02X): %w", slaveID, pdu[0], err)
	}
	if _, err := decodeResponsePDU(pdu[0], respPDU); err != nil {
		return nil, fmt.Errorf("modbus: execute raw failed (slave %d, function 0x%02X): %w", slaveID, pdu[0], err)
	}
	return respPDU, nil
}

package modbus

import (
	"encoding/binary"
	"fmt"
)

// Supported Modbus function codes.
const (
	FuncCodeReadCoils              uint8 = 0x01
	FuncCodeReadDiscreteInputs     uint8 = 0x02
	FuncCodeReadHoldingRegisters   uint8 = 0x03
	FuncCodeReadInputRegisters     uint8 = 0x04
	FuncCodeWriteSingleCoil        uint8 = 0x05
	FuncCodeWriteSingleRegister    uint8 = 0x06
	FuncCodeReadExceptionStatus    uint8 = 0x07
	FuncCodeWriteMultipleCoils     uint8 = 0x0F
	FuncCodeWriteMultipleRegisters uint8 = 0x10
)

// exceptionBit is set on the echoed function code of an exception response.
const exceptionBit uint8 = 0x80

// Hard protocol limits on the quantity field of each request.
const (
	MaxQuantityReadBits       uint16 = 2000
	MaxQuantityReadRegisters  uint16 = 125
	MaxQuantityWriteCoils     uint16 = 1968
	MaxQuantityWriteRegisters uint16 = 123
)

// buildRequestPDU prepends the function code to the PDU data payload.
func buildRequestPDU(functionCode uint8, data []byte) []byte {
	pdu := make([]byte, 1+len(data))
	pdu[0] = functionCode
	copy(pdu[1:], data)
	return pdu
}

// buildReadRequestPDU builds the address + quantity request shared by the
// four read functions (0x01..0x04).
func buildReadRequestPDU(functionCode uint8, startAddress, quantity uint16) []byte {
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], startAddress)
	binary.BigEndian.PutUint16(data[2:4], quantity)
	return buildRequestPDU(functionCode, data)
}

// checkReadQuantity rejects out-of-range read quantities before any bytes
// are sent: 1..2000 for bits, 1..125 for registers.
func checkReadQuantity(functionCode uint8, quantity uint16) error {
	var max uint16
	switch functionCode {
	case FuncCodeReadCoils, FuncCodeReadDiscreteInputs:
		max = MaxQuantityReadBits
	case FuncCodeReadHoldingRegisters, FuncCodeReadInputRegisters:
		max = MaxQuantityReadRegisters
	default:
		return fmt.Errorf("%w: function 0x%02X is not a read function", ErrInvalidQuantity, functionCode)
	}
	if quantity < 1 || quantity > max {
		return fmt.Errorf("%w: %d for function 0x%02X (allowed 1..%d)",
			ErrInvalidQuantity, quantity, functionCode, max)
	}
	return nil
}

// checkWriteQuantity rejects out-of-range write quantities: 1..1968 for
// coils, 1..123 for registers. It takes an int so an oversized value slice
// is caught before the length is narrowed to the wire's uint16.
func checkWriteQuantity(functionCode uint8, quantity int) error {
	var max int
	switch functionCode {
	case FuncCodeWriteMultipleCoils:
		max = int(MaxQuantityWriteCoils)
	case FuncCodeWriteMultipleRegisters:
		max = int(MaxQuantityWriteRegisters)
	default:
		return fmt.Errorf("%w: function 0x%02X is not a multiple write function", ErrInvalidQuantity, functionCode)
	}
	if quantity < 1 || quantity > max {
		return fmt.Errorf("%w: %d for function 0x%02X (allowed 1..%d)",
			ErrInvalidQuantity, quantity, functionCode, max)
	}
	return nil
}

// decodeResponsePDU checks the echoed function code of a response PDU and
// splits off device exceptions. On success it returns the PDU body after
// the function code.
func decodeResponsePDU(reqFunctionCode uint8, respPDU []byte) ([]byte, error) {
	if len(respPDU) == 0 {
		return nil, fmt.Errorf("%w: empty response PDU", ErrMalformedPayload)
	}
	if respPDU[0] == reqFunctionCode|exceptionBit {
		if len(respPDU) < 2 {
			return nil, fmt.Errorf("%w: exception response without exception code", ErrMalformedPayload)
		}
		return nil, &ModbusError{FunctionCode: reqFunctionCode, ExceptionCode: respPDU[1]}
	}
	if respPDU[0] != reqFunctionCode {
		return nil, fmt.Errorf("%w: function code 0x%02X in response to 0x%02X",
			ErrMalformedPayload, respPDU[0], reqFunctionCode)
	}
	return respPDU[1:], nil
}

// decodeReadResponse validates the byte count field of a read response and
// returns the data payload. expectedBytes is derived from the requested
// quantity: ceil(quantity/8) for bits, 2*quantity for registers.
func decodeReadResponse(reqFunctionCode uint8, respPDU []byte, expectedBytes int) ([]byte, error) {
	body, err := decodeResponsePDU(reqFunctionCode, respPDU)
	if err != nil {
		return nil, err
	}
	if len(body) < 1 {
		return nil, fmt.Errorf("%w: read response without byte count", ErrMalformedPayload)
	}
	byteCount := int(body[0])
	if len(body)-1 != byteCount {
		return nil, fmt.Errorf("%w: byte count %d does not match %d payload bytes",
			ErrMalformedPayload, byteCount, len(body)-1)
	}
	if byteCount != expectedBytes {
		return nil, fmt.Errorf("%w: expected %d payload bytes, got %d",
			ErrMalformedPayload, expectedBytes, byteCount)
	}
	return body[1:], nil
}

// decodeWriteEcho validates the 4-byte confirmation of a write request.
// Single writes echo address + value, multiple writes echo address +
// quantity; either way the response must match what was sent exactly.
func decodeWriteEcho(reqFunctionCode uint8, respPDU []byte, address, value uint16) error {
	body, err := decodeResponsePDU(reqFunctionCode, respPDU)
	if err != nil {
		return err
	}
	if len(body) != 4 {
		return fmt.Errorf("%w: write confirmation is %d bytes, expected 4", ErrMalformedPayload, len(body))
	}
	respAddress := binary.BigEndian.Uint16(body[0:2])
	respValue := binary.BigEndian.Uint16(body[2:4])
	if respAddress != address || respValue != value {
		return fmt.Errorf("%w: sent address=%d value=0x%04X, device echoed address=%d value=0x%04X",
			ErrResponseMismatch, address, value, respAddress, respValue)
	}
	return nil
}

package modbus

import (
	"errors"
	"fmt"
)

// Protocol level errors. Frame errors (bad protocol id, transaction or
// unit id mismatch, length out of range) mean the stream can no longer be
// trusted for correlation; the caller should re-establish the connection.
var (
	ErrInvalidQuantity   = errors.New("modbus: quantity out of range")
	ErrMalformedFrame    = errors.New("modbus: malformed MBAP frame")
	ErrShortRead         = errors.New("modbus: short read")
	ErrFrameMismatch     = errors.New("modbus: response frame does not match request")
	ErrMalformedPayload  = errors.New("modbus: malformed response payload")
	ErrResponseMismatch  = errors.New("modbus: response does not echo request")
	ErrTransporterClosed = errors.New("modbus: transporter is closed")
)

// Standard Modbus exception codes as reported by the device.
const (
	ExceptionIllegalFunction        uint8 = 0x01
	ExceptionIllegalDataAddress     uint8 = 0x02
	ExceptionIllegalDataValue       uint8 = 0x03
	ExceptionSlaveDeviceFailure     uint8 = 0x04
	ExceptionAcknowledge            uint8 = 0x05
	ExceptionSlaveDeviceBusy        uint8 = 0x06
	ExceptionNegativeAcknowledge    uint8 = 0x07
	ExceptionMemoryParityError      uint8 = 0x08
	ExceptionGatewayPathUnavailable uint8 = 0x0A
	ExceptionGatewayTargetFailed    uint8 = 0x0B
)

// ModbusError is an exception explicitly reported by the remote device.
// The protocol exchange itself succeeded; the device refused the request.
// Use errors.As to tell it apart from transport and framing failures.
type ModbusError struct {
	FunctionCode  uint8 // function code of the request that was refused
	ExceptionCode uint8 // raw exception byte from the response
}

// Error implements the error interface.
func (e *ModbusError) Error() string {
	return fmt.Sprintf("modbus: exception 0x%02X (%s) for function 0x%02X",
		e.ExceptionCode, ExceptionMessage(e.ExceptionCode), e.FunctionCode)
}

// ExceptionMessage returns a human-readable message for a Modbus exception
// code. Unrecognized codes are preserved, not rejected.
func ExceptionMessage(exceptionCode uint8) string {
	switch exceptionCode {
	case ExceptionIllegalFunction:
		return "Illegal function"
	case ExceptionIllegalDataAddress:
		return "Illegal data address"
	case ExceptionIllegalDataValue:
		return "Illegal data value"
	case ExceptionSlaveDeviceFailure:
		return "Slave device failure"
	case ExceptionAcknowledge:
		return "Acknowledge"
	case ExceptionSlaveDeviceBusy:
		return "Slave device busy"
	case ExceptionNegativeAcknowledge:
		return "Negative acknowledge"
	case ExceptionMemoryParityError:
		return "Memory parity error"
	case ExceptionGatewayPathUnavailable:
		return "Gateway path unavailable"
	case ExceptionGatewayTargetFailed:
		return "Gateway target device failed to respond"
	default:
		return fmt.Sprintf("Unknown exception %d", exceptionCode)
	}
}

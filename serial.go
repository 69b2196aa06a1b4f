package modbus

import (
	"io"
	"time"

	serial "github.com/hootrhino/goserial"
)

// SerialConfig describes a serial line used as the byte stream beneath the
// MBAP frame layer, for links that carry Modbus TCP framing over serial
// (e.g. behind a transparent gateway). Classic RTU/ASCII framing with
// CRC16/LRC and silent-interval timing is not provided here.
type SerialConfig struct {
	Address  string        // port path, e.g. /dev/ttyUSB0 or COM3
	BaudRate int           // default 9600
	DataBits int           // default 8
	StopBits int           // default 1
	Parity   string        // N, E or O, default N
	Timeout  time.Duration // per-read timeout enforced by the port driver
}

// OpenSerial opens the port and returns it as a Conn suitable for
// NewTCPTransporter.
func OpenSerial(cfg SerialConfig) (io.ReadWriteCloser, error) {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 9600
	}
	if cfg.DataBits == 0 {
		cfg.DataBits = 8
	}
	if cfg.StopBits == 0 {
		cfg.StopBits = 1
	}
	if cfg.Parity == "" {
		cfg.Parity = "N"
	}
	return serial.Open(&serial.Config{
		Address:  cfg.Address,
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		StopBits: cfg.StopBits,
		Parity:   cfg.Parity,
		Timeout:  cfg.Timeout,
	})
}

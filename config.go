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
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultTCPPort is the IANA-assigned Modbus TCP port.
const DefaultTCPPort = 502

// ClientConfig collects the connection settings for one device.
type ClientConfig struct {
	Host           string        `mapstructure:"host"`            // device host name or IP, required
	Port           uint16        `mapstructure:"port"`            // TCP port, default 502
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"` // dial timeout
	Timeout        time.Duration `mapstructure:"timeout"`         // per round-trip i/o timeout
	LogLevel       string        `mapstructure:"log_level"`       // DEBUG/INFO/WARNING/ERROR/NONE
}

// DefaultClientConfig returns the defaults used when a field is not set.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Port:           DefaultTCPPort,
		ConnectTimeout: 5 * time.Second,
		Timeout:        5 * time.Second,
		LogLevel:       "NONE",
	}
}

// LoadClientConfig reads a config file (format chosen by extension:
// yaml/toml/json) with environment overrides prefixed MODBUS_, e.g.
// MODBUS_HOST, MODBUS_PORT.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("modbus")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("host", "")
	v.SetDefault("port", int(cfg.Port))
	v.SetDefault("connect_timeout", cfg.ConnectTimeout)
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("log_level", cfg.LogLevel)

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("modbus: failed to read config %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("modbus: failed to parse config %s: %w", path, err)
	}
	if cfg.Host == "" {
		return cfg, fmt.Errorf("modbus: config %s: host is required", path)
	}
	return cfg, nil
}

// Connect dials the device described by cfg and assembles a ready-to-use
// client. The caller owns the client and must Close it.
func Connect(cfg ClientConfig) (*Client, error) {
	level := LevelNone
	if cfg.LogLevel != "" {
		l, ok := StringToLevel[strings.ToUpper(cfg.LogLevel)]
		if !ok {
			return nil, fmt.Errorf("modbus: invalid log level: %s", cfg.LogLevel)
		}
		level = l
	}

	port := cfg.Port
	if port == 0 {
		port = DefaultTCPPort
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(int(port)))

	conn, err := net.DialTimeout("tcp", addr, cfg.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("modbus: failed to connect to %s: %w", addr, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tc.SetNoDelay(true); err != nil {
			conn.Close()
			return nil, fmt.Errorf("modbus: failed to configure %s: %w", addr, err)
		}
	}

	client := NewTCPClient(conn, cfg.Timeout)
	if level != LevelNone {
		client.SetLogger(NewSimpleLogger(os.Stdout, level, addr))
	}
	return client, nil
}

// File: server/config.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server configuration, defaults and YAML loading.

package server

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ghodss/yaml"

	"github.com/momentics/wsecho/protocol"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid server config")

// Duration is a time.Duration that reads "30s"-style strings or a number
// of seconds from YAML and JSON.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		uq, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("duration %s: %w", s, err)
		}
		v, err := time.ParseDuration(uq)
		if err != nil {
			return fmt.Errorf("duration %s: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("duration %s: %w", s, err)
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(time.Duration(d).String())), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds all server-side configuration parameters.
type Config struct {
	ListenAddr    string   `json:"listen_addr"`    // TCP bind address
	EchoPath      string   `json:"echo_path"`      // only upgrade path served
	MaxPayload    int      `json:"max_payload"`    // largest inbound payload
	ReceiveBuffer int      `json:"receive_buffer"` // 0 = max_payload + frame header
	IdleTimeout   Duration `json:"idle_timeout"`   // 0 disables
	WriteTimeout  Duration `json:"write_timeout"`  // 0 disables
	QueueCapacity int      `json:"queue_capacity"` // pending socket events
	BatchSize     int      `json:"batch_size"`     // events per loop batch
	Debug         bool     `json:"debug"`          // per-frame trace logging
}

// DefaultConfig returns the firmware defaults: port 8088, /echo, 1024 bytes.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:    ":8088",
		EchoPath:      "/echo",
		MaxPayload:    1024,
		IdleTimeout:   Duration(30 * time.Second),
		WriteTimeout:  Duration(5 * time.Second),
		QueueCapacity: 64,
		BatchSize:     16,
	}
}

// LoadConfig reads a YAML file over the defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML (or JSON) over the defaults and validates it.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the limits the connection state machine relies on.
func (c *Config) Validate() error {
	switch {
	case c.ListenAddr == "":
		return fmt.Errorf("%w: listen_addr is empty", ErrInvalidConfig)
	case !strings.HasPrefix(c.EchoPath, "/"):
		return fmt.Errorf("%w: echo_path %q must start with /", ErrInvalidConfig, c.EchoPath)
	case len(c.EchoPath) > protocol.MaxURILen:
		return fmt.Errorf("%w: echo_path longer than %d bytes", ErrInvalidConfig, protocol.MaxURILen)
	case c.MaxPayload <= 0 || c.MaxPayload > protocol.MaxPayloadLen:
		return fmt.Errorf("%w: max_payload %d outside 1..%d", ErrInvalidConfig, c.MaxPayload, protocol.MaxPayloadLen)
	case c.ReceiveBuffer != 0 && c.ReceiveBuffer < c.MaxPayload+protocol.MaxFrameHeaderLen:
		return fmt.Errorf("%w: receive_buffer %d cannot hold a %d byte frame",
			ErrInvalidConfig, c.ReceiveBuffer, c.MaxPayload+protocol.MaxFrameHeaderLen)
	case c.IdleTimeout < 0 || c.WriteTimeout < 0:
		return fmt.Errorf("%w: negative timeout", ErrInvalidConfig)
	case c.QueueCapacity < 0 || c.BatchSize < 0:
		return fmt.Errorf("%w: negative queue sizing", ErrInvalidConfig)
	}
	return nil
}

// ReceiveBufferSize returns the effective receive buffer capacity.
func (c *Config) ReceiveBufferSize() int {
	if c.ReceiveBuffer > 0 {
		return c.ReceiveBuffer
	}
	return c.MaxPayload + protocol.MaxFrameHeaderLen
}

func (c *Config) connConfig() protocol.ConnConfig {
	return protocol.ConnConfig{
		EchoPath:          c.EchoPath,
		MaxPayload:        c.MaxPayload,
		ReceiveBufferSize: c.ReceiveBufferSize(),
	}
}

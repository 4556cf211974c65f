package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds the constants of a stack. It is read once at start.
type Config struct {
	MTU               int           `yaml:"mtu"`
	MSS               int           `yaml:"mss"`
	WindowScale       uint8         `yaml:"window_scale"`
	ReceiveWindow     uint32        `yaml:"receive_window"`
	TTL               uint8         `yaml:"ttl"`
	FastTimerInterval time.Duration `yaml:"fast_timer_interval"`
	SlowTimerInterval time.Duration `yaml:"slow_timer_interval"`
	TimerLeeway       time.Duration `yaml:"timer_leeway"`
	// ResetUnmatched answers segments that match no connection with RST.
	ResetUnmatched bool `yaml:"reset_unmatched"`
}

const (
	ipv4HeaderLength = 20
	tcpHeaderLength  = 20
	maxWindowScale   = 14
)

func Default() *Config {
	return &Config{
		MTU:               1500,
		MSS:               1420,
		WindowScale:       8,
		ReceiveWindow:     0xFFFF,
		TTL:               64,
		FastTimerInterval: 200 * time.Millisecond,
		SlowTimerInterval: 500 * time.Millisecond,
		TimerLeeway:       50 * time.Millisecond,
		ResetUnmatched:    true,
	}
}

// Load reads a yaml file over the defaults. Missing keys keep their default
// values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// MaxMSS is the largest segment an IPv4 datagram of MTU bytes can carry.
func (c *Config) MaxMSS() int {
	return c.MTU - ipv4HeaderLength - tcpHeaderLength
}

func (c *Config) Validate() error {
	if c.MTU < ipv4HeaderLength+tcpHeaderLength+1 || c.MTU > 0xFFFF {
		return fmt.Errorf("%w: mtu %d", ErrInvalidConfig, c.MTU)
	}
	if c.MSS <= 0 || c.MSS > c.MaxMSS() {
		return fmt.Errorf("%w: mss %d must be in 1..%d", ErrInvalidConfig, c.MSS, c.MaxMSS())
	}
	if c.WindowScale > maxWindowScale {
		return fmt.Errorf("%w: window scale %d exceeds %d", ErrInvalidConfig, c.WindowScale, maxWindowScale)
	}
	if c.ReceiveWindow == 0 || c.ReceiveWindow > 0xFFFF<<c.WindowScale {
		return fmt.Errorf("%w: receive window %d", ErrInvalidConfig, c.ReceiveWindow)
	}
	if c.TTL == 0 {
		return fmt.Errorf("%w: ttl is zero", ErrInvalidConfig)
	}
	if c.FastTimerInterval <= 0 || c.SlowTimerInterval <= 0 {
		return fmt.Errorf("%w: timer intervals must be positive", ErrInvalidConfig)
	}
	if c.TimerLeeway < 0 {
		return fmt.Errorf("%w: negative timer leeway", ErrInvalidConfig)
	}
	return nil
}

package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/arqlink/internal/protocol"
	"github.com/danmuck/arqlink/internal/protocol/frame"
)

var ErrInvalidConfig = errors.New("session: invalid config")

// Config defines link reliability settings shared by sender and receiver.
type Config struct {
	// ChunkSize is the number of input bytes carried per data segment.
	ChunkSize int
	// InitialWindow must be at least 2: the window admits a new segment
	// only while in-flight+1 < window.
	InitialWindow int
	InitialRTT    time.Duration
	// MinRTT floors rtt samples so loopback acks do not collapse the
	// retransmission timeout to microseconds.
	MinRTT            time.Duration
	PollInterval      time.Duration
	TimeoutMultiplier float64
	// ContinueAfterCorrupt makes the receiver keep decoding a datagram
	// after its first corrupt frame instead of dropping the rest.
	ContinueAfterCorrupt bool
	Checksum             frame.Hash
	ReadBufferSize       int
}

// DefaultConfig returns the stock link settings.
func DefaultConfig() Config {
	return Config{
		ChunkSize:         protocol.MaxPayload,
		InitialWindow:     4,
		InitialRTT:        500 * time.Millisecond,
		MinRTT:            time.Millisecond,
		PollInterval:      50 * time.Millisecond,
		TimeoutMultiplier: 2,
		Checksum:          frame.HashSHA256,
		ReadBufferSize:    64 * 1024,
	}
}

// WithDefaults fills zero values from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.ChunkSize == 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.InitialWindow == 0 {
		c.InitialWindow = d.InitialWindow
	}
	if c.InitialRTT == 0 {
		c.InitialRTT = d.InitialRTT
	}
	if c.MinRTT == 0 {
		c.MinRTT = d.MinRTT
	}
	if c.PollInterval == 0 {
		c.PollInterval = d.PollInterval
	}
	if c.TimeoutMultiplier == 0 {
		c.TimeoutMultiplier = d.TimeoutMultiplier
	}
	if c.Checksum == "" {
		c.Checksum = d.Checksum
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	return c
}

func (c Config) Validate() error {
	if c.ChunkSize < 1 || c.ChunkSize > protocol.MaxPayload {
		return fmt.Errorf("%w: chunk size %d outside 1..%d", ErrInvalidConfig, c.ChunkSize, protocol.MaxPayload)
	}
	if c.InitialWindow < 2 {
		return fmt.Errorf("%w: initial window %d < 2", ErrInvalidConfig, c.InitialWindow)
	}
	if c.InitialRTT <= 0 {
		return fmt.Errorf("%w: initial rtt must be positive", ErrInvalidConfig)
	}
	if c.MinRTT <= 0 {
		return fmt.Errorf("%w: min rtt must be positive", ErrInvalidConfig)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", ErrInvalidConfig)
	}
	if c.TimeoutMultiplier <= 0 {
		return fmt.Errorf("%w: timeout multiplier must be positive", ErrInvalidConfig)
	}
	if c.ReadBufferSize < 1 {
		return fmt.Errorf("%w: read buffer size must be positive", ErrInvalidConfig)
	}
	if _, err := frame.NewCodec(c.Checksum); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// RetransmitTimeout is how long a segment may stay unacknowledged.
func (c Config) RetransmitTimeout(rtt time.Duration) time.Duration {
	return time.Duration(float64(rtt) * c.TimeoutMultiplier)
}

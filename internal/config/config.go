package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/arqlink/internal/protocol/frame"
	"github.com/danmuck/arqlink/internal/protocol/session"
)

// SenderConfig configures one arqsend process.
type SenderConfig struct {
	Host        string
	Port        int
	MetricsAddr string
	Link        session.Config
}

// ReceiverConfig configures one arqrecv process.
type ReceiverConfig struct {
	ListenAddr  string
	MetricsAddr string
	Link        session.Config
}

type fileConfig struct {
	Host        string         `toml:"host"`
	Port        int            `toml:"port"`
	ListenAddr  string         `toml:"listen_addr"`
	MetricsAddr string         `toml:"metrics_addr"`
	Link        linkFileConfig `toml:"link"`
}

type linkFileConfig struct {
	ChunkSize            int     `toml:"chunk_size"`
	InitialWindow        int     `toml:"initial_window"`
	InitialRTT           string  `toml:"initial_rtt"`
	MinRTT               string  `toml:"min_rtt"`
	PollInterval         string  `toml:"poll_interval"`
	TimeoutMultiplier    float64 `toml:"timeout_multiplier"`
	ContinueAfterCorrupt bool    `toml:"continue_after_corrupt"`
	Checksum             string  `toml:"checksum"`
	ReadBufferSize       int     `toml:"read_buffer_size"`
}

func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		Host: "127.0.0.1",
		Link: session.DefaultConfig(),
	}
}

func DefaultReceiverConfig() ReceiverConfig {
	return ReceiverConfig{
		ListenAddr: ":0",
		Link:       session.DefaultConfig(),
	}
}

// LoadSenderConfig overlays the keys present in path onto the defaults.
func LoadSenderConfig(path string) (SenderConfig, error) {
	cfg := DefaultSenderConfig()
	raw, meta, err := decodeFile(path)
	if err != nil {
		return SenderConfig{}, err
	}
	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if err := applyLink(meta, raw.Link, &cfg.Link); err != nil {
		return SenderConfig{}, err
	}
	return cfg, nil
}

// LoadReceiverConfig overlays the keys present in path onto the defaults.
func LoadReceiverConfig(path string) (ReceiverConfig, error) {
	cfg := DefaultReceiverConfig()
	raw, meta, err := decodeFile(path)
	if err != nil {
		return ReceiverConfig{}, err
	}
	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if err := applyLink(meta, raw.Link, &cfg.Link); err != nil {
		return ReceiverConfig{}, err
	}
	return cfg, nil
}

func decodeFile(path string) (fileConfig, toml.MetaData, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fileConfig{}, toml.MetaData{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fileConfig{}, toml.MetaData{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}
	return raw, meta, nil
}

func applyLink(meta toml.MetaData, raw linkFileConfig, cfg *session.Config) error {
	if meta.IsDefined("link", "chunk_size") {
		cfg.ChunkSize = raw.ChunkSize
	}
	if meta.IsDefined("link", "initial_window") {
		cfg.InitialWindow = raw.InitialWindow
	}
	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"initial_rtt", raw.InitialRTT, &cfg.InitialRTT},
		{"min_rtt", raw.MinRTT, &cfg.MinRTT},
		{"poll_interval", raw.PollInterval, &cfg.PollInterval},
	}
	for _, d := range durations {
		if !meta.IsDefined("link", d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return fmt.Errorf("parse link.%s: %w", d.key, err)
		}
		*d.dst = v
	}
	if meta.IsDefined("link", "timeout_multiplier") {
		cfg.TimeoutMultiplier = raw.TimeoutMultiplier
	}
	if meta.IsDefined("link", "continue_after_corrupt") {
		cfg.ContinueAfterCorrupt = raw.ContinueAfterCorrupt
	}
	if meta.IsDefined("link", "checksum") {
		cfg.Checksum = frame.Hash(strings.TrimSpace(raw.Checksum))
	}
	if meta.IsDefined("link", "read_buffer_size") {
		cfg.ReadBufferSize = raw.ReadBufferSize
	}
	return nil
}

func (c SenderConfig) PeerAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func ValidateSenderConfig(cfg SenderConfig) error {
	if strings.TrimSpace(cfg.Host) == "" {
		return fmt.Errorf("sender config missing host")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("sender config port %d outside 1..65535", cfg.Port)
	}
	if err := cfg.Link.Validate(); err != nil {
		return fmt.Errorf("sender link invalid: %w", err)
	}
	return nil
}

func ValidateReceiverConfig(cfg ReceiverConfig) error {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("receiver config missing listen_addr")
	}
	if err := cfg.Link.Validate(); err != nil {
		return fmt.Errorf("receiver link invalid: %w", err)
	}
	return nil
}

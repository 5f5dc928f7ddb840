package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/danmuck/arqlink/internal/config"
	"github.com/danmuck/arqlink/internal/protocol/frame"
)

// parseArgs reads [flags] <host> <port>. Flags override the config file,
// positional arguments override both.
func parseArgs(args []string) (config.SenderConfig, error) {
	fs := flag.NewFlagSet("arqsend", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "path to a sender TOML config")
	metricsAddr := fs.String("metrics", "", "serve /health, /stats and /metrics on this address")
	chunkSize := fs.Int("chunk", 0, "input bytes per segment")
	checksum := fs.String("checksum", "", "checksum hash: sha256|blake2b")
	if err := fs.Parse(args); err != nil {
		return config.SenderConfig{}, err
	}

	cfg := config.DefaultSenderConfig()
	if *configPath != "" {
		loaded, err := config.LoadSenderConfig(*configPath)
		if err != nil {
			return config.SenderConfig{}, err
		}
		cfg = loaded
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *chunkSize != 0 {
		cfg.Link.ChunkSize = *chunkSize
	}
	if *checksum != "" {
		cfg.Link.Checksum = frame.Hash(*checksum)
	}

	rest := fs.Args()
	switch len(rest) {
	case 0:
		if *configPath == "" {
			return config.SenderConfig{}, fmt.Errorf("usage: arqsend [flags] <host> <port>")
		}
	case 2:
		cfg.Host = strings.TrimSpace(rest[0])
		port, err := strconv.Atoi(rest[1])
		if err != nil {
			return config.SenderConfig{}, fmt.Errorf("parse port %q: %w", rest[1], err)
		}
		cfg.Port = port
	default:
		return config.SenderConfig{}, fmt.Errorf("usage: arqsend [flags] <host> <port>")
	}
	if err := config.ValidateSenderConfig(cfg); err != nil {
		return config.SenderConfig{}, err
	}
	return cfg, nil
}

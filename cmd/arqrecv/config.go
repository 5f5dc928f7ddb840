package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/danmuck/arqlink/internal/config"
	"github.com/danmuck/arqlink/internal/protocol/frame"
)

func parseArgs(args []string) (config.ReceiverConfig, error) {
	fs := flag.NewFlagSet("arqrecv", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "path to a receiver TOML config")
	listen := fs.String("listen", "", "UDP address to bind (default :0, an ephemeral port)")
	metricsAddr := fs.String("metrics", "", "serve /health, /stats and /metrics on this address")
	checksum := fs.String("checksum", "", "checksum hash: sha256|blake2b")
	continueAfterCorrupt := fs.Bool("continue-after-corrupt", false, "keep decoding a datagram after a corrupt frame")
	if err := fs.Parse(args); err != nil {
		return config.ReceiverConfig{}, err
	}
	if fs.NArg() != 0 {
		return config.ReceiverConfig{}, fmt.Errorf("usage: arqrecv [flags]")
	}

	cfg := config.DefaultReceiverConfig()
	if *configPath != "" {
		loaded, err := config.LoadReceiverConfig(*configPath)
		if err != nil {
			return config.ReceiverConfig{}, err
		}
		cfg = loaded
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *checksum != "" {
		cfg.Link.Checksum = frame.Hash(*checksum)
	}
	if *continueAfterCorrupt {
		cfg.Link.ContinueAfterCorrupt = true
	}
	if err := config.ValidateReceiverConfig(cfg); err != nil {
		return config.ReceiverConfig{}, err
	}
	return cfg, nil
}

package main

import "testing"

func TestParseArgsDefaults(t *testing.T) {
	cfg, err := parseArgs(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.ListenAddr != ":0" || cfg.Link.ContinueAfterCorrupt {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestParseArgsFlags(t *testing.T) {
	cfg, err := parseArgs([]string{"-listen", "127.0.0.1:9500", "-continue-after-corrupt", "-metrics", ":9501"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9500" || !cfg.Link.ContinueAfterCorrupt || cfg.MetricsAddr != ":9501" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if _, err := parseArgs([]string{"extra"}); err == nil {
		t.Fatalf("positional args should be rejected")
	}
	if _, err := parseArgs([]string{"-checksum", "crc"}); err == nil {
		t.Fatalf("unknown checksum should be rejected")
	}
}

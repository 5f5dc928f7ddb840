package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	KindSender   = "sender"
	KindReceiver = "receiver"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindSender:
		return senderTemplate, nil
	case KindReceiver:
		return receiverTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

// Validate loads path as kind and checks the result.
func Validate(path, kind string) error {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindSender:
		cfg, err := LoadSenderConfig(path)
		if err != nil {
			return err
		}
		return ValidateSenderConfig(cfg)
	case KindReceiver:
		cfg, err := LoadReceiverConfig(path)
		if err != nil {
			return err
		}
		return ValidateReceiverConfig(cfg)
	default:
		return fmt.Errorf("unknown config kind: %s", kind)
	}
}

const linkTemplate = `
[link]
chunk_size = 1375
initial_window = 4
initial_rtt = "500ms"
min_rtt = "1ms"
poll_interval = "50ms"
timeout_multiplier = 2.0
continue_after_corrupt = false
checksum = "sha256"
read_buffer_size = 65536
`

const senderTemplate = `host = "127.0.0.1"
port = 9400
metrics_addr = ""
` + linkTemplate

const receiverTemplate = `listen_addr = ":0"
metrics_addr = ""
` + linkTemplate

package main

import (
	"fmt"
	"os"

	"github.com/danmuck/arqlink/internal/link"
	"github.com/danmuck/arqlink/internal/logging"
)

func main() {
	cfg, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "arqsend: %v\n", err)
		os.Exit(2)
	}
	logging.ConfigureRuntime()
	svc := link.NewSenderService(cfg, os.Stdin)
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "arqsend: %v\n", err)
		os.Exit(1)
	}
}

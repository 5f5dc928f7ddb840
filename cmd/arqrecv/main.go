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
		fmt.Fprintf(os.Stderr, "arqrecv: %v\n", err)
		os.Exit(2)
	}
	logging.ConfigureRuntime()
	svc := link.NewReceiverService(cfg, os.Stdout)
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "arqrecv: %v\n", err)
		os.Exit(1)
	}
}

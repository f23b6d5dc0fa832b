package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

var serverAddr = flag.String("server", "http://127.0.0.1:8067", "osdhcpd admin API address")

func main() {
	flag.Parse()

	client := NewClient(*serverAddr)
	if err := client.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to %s: %v\n", *serverAddr, err)
		fmt.Fprintf(os.Stderr, "Make sure osdhcpd is running\n")
		os.Exit(1)
	}

	cli := NewCLI(client, *serverAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cli.Stop()
		os.Exit(0)
	}()

	if err := cli.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/lawnchairsociety/roomgen/test"
)

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "Layout server WebSocket URL")
	verbose := flag.Bool("v", false, "Verbose output - show detailed actions for each test")
	timeout := flag.Duration("timeout", 5*time.Second, "Per-request timeout")
	flag.Parse()

	test.Verbose = *verbose
	test.Timeout = *timeout

	fmt.Printf("Running integration tests against %s\n", *serverURL)
	fmt.Println("Make sure the layout server is running!")
	if *verbose {
		fmt.Println("Verbose mode enabled - showing detailed test actions")
	}
	fmt.Println()

	results := test.RunAllTests(*serverURL)
	test.PrintResults(results)

	if test.Failed(results) != nil {
		os.Exit(1)
	}
}

// Command stubborn is a fake simulator that ignores termination signals.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
)

func main() {
	if len(os.Args) != 4 {
		fmt.Fprintf(os.Stderr, "usage: %s <config> <log> <results-dir>\n", os.Args[0])
		os.Exit(2)
	}
	resultsDir := os.Args[3]

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		for s := range sigs {
			fmt.Fprintf(os.Stderr, "ignoring signal: %v\n", s)
		}
	}()

	_ = os.WriteFile(filepath.Join(resultsDir, "ready"), nil, 0o644)

	for {
		time.Sleep(time.Second)
	}
}

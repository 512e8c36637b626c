// Command cooperative is a fake simulator that exits promptly on SIGTERM.
package main

import (
	"encoding/json"
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

	data, _ := json.Marshal(os.Args[1:])
	_ = os.WriteFile(filepath.Join(resultsDir, "invocation.json"), data, 0o644)
	_ = os.WriteFile(filepath.Join(resultsDir, "ready"), nil, 0o644)

	select {
	case sig := <-sigs:
		fmt.Fprintf(os.Stderr, "received %s, cleaning up\n", sig)
		time.Sleep(100 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(resultsDir, "clean_exit"), nil, 0o644)
		os.Exit(0)
	case <-time.After(60 * time.Second):
		fmt.Println("finished simulation")
	}
}

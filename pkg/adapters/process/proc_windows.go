//go:build windows

package process

import (
	"os"
	"os/exec"
)

func configureProcessGroup(cmd *exec.Cmd) {}

// signalTerminate fails for most processes on Windows, which sends
// the supervisor straight to the forced kill.
func signalTerminate(p *os.Process) error {
	return p.Signal(os.Interrupt)
}

func forceKill(p *os.Process) error {
	return p.Kill()
}

package process

import (
	"slices"

	gops "github.com/shirou/gopsutil/v3/process"
)

// Alive reports whether pid names a running process. Zombies count as dead.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	exists, err := gops.PidExists(int32(pid))
	if err != nil || !exists {
		return false
	}
	p, err := gops.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	status, err := p.Status()
	if err != nil {
		return true
	}
	return !slices.Contains(status, gops.Zombie)
}

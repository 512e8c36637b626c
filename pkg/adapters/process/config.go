package process

import (
	"fmt"

	"github.com/aretw0/simgym/pkg/domain"
)

// Invocation describes how the simulator executable is launched.
// The results directory is appended per episode, giving the positional layout
// <executable> <config-path> <log-path> <results-directory>.
type Invocation struct {
	Executable string `yaml:"executable" json:"executable" mapstructure:"executable"`
	ConfigPath string `yaml:"config_path" json:"config_path" mapstructure:"config_path"`
	LogPath    string `yaml:"log_path" json:"log_path" mapstructure:"log_path"`
}

// Args returns the full argv for an episode rooted at resultsDir.
func (i Invocation) Args(resultsDir string) []string {
	return []string{i.Executable, i.ConfigPath, i.LogPath, resultsDir}
}

// Validate checks that every positional argument is set.
func (i Invocation) Validate() error {
	switch {
	case i.Executable == "":
		return fmt.Errorf("%w: simulator executable is required", domain.ErrInvalidConfig)
	case i.ConfigPath == "":
		return fmt.Errorf("%w: simulator config path is required", domain.ErrInvalidConfig)
	case i.LogPath == "":
		return fmt.Errorf("%w: simulator log path is required", domain.ErrInvalidConfig)
	}
	return nil
}

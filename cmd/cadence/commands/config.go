package commands

import (
	"github.com/mosaicnetworks/cadence/src/config"
)

//CLIConfig contains configuration for the Run command
type CLIConfig struct {
	Cadence config.Config `mapstructure:",squash"`
}

//NewDefaultCLIConfig creates a CLIConfig with default values
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		Cadence: *config.NewDefaultConfig(),
	}
}

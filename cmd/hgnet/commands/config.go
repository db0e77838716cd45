package commands

import (
	"github.com/mosaicnetworks/hgclient/src/config"
)

// CLIConfig contains the configuration shared by hgnet commands
type CLIConfig struct {
	Client  config.Config `mapstructure:",squash"`
	LogFile string        `mapstructure:"log-file"`
}

// NewDefaultCLIConfig creates a CLIConfig with default values
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		Client: *config.NewDefaultConfig(),
	}
}

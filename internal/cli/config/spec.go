package config

import (
	"fmt"

	"github.com/yndnr/keyvault-go/internal/cli/output"
	serverconfig "github.com/yndnr/keyvault-go/internal/server/config"
)

// DefaultProfile is the profile name used when the file names none.
const DefaultProfile = "default"

// CLIConfig is the configuration for kvault-cli.
type CLIConfig struct {
	// Output is the default output format (table, json, yaml).
	Output string `yaml:"output"`

	// Current names the active profile.
	Current string `yaml:"current"`

	// Profiles are saved connection settings keyed by name.
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile stores the addresses and principal of one server.
type Profile struct {
	// Addr is the RESP TCP address.
	Addr string `yaml:"addr,omitempty" json:"addr,omitempty"`
	// Socket is the RESP unix socket; it wins over Addr when set.
	Socket string `yaml:"socket,omitempty" json:"socket,omitempty"`
	// AdminSocket is the local admin socket.
	AdminSocket string `yaml:"admin_socket,omitempty" json:"admin_socket,omitempty"`
	// HTTPAddr is the health and admin HTTP address.
	HTTPAddr string `yaml:"http_addr,omitempty" json:"http_addr,omitempty"`
	// Principal is the AUTH name.
	Principal string `yaml:"principal,omitempty" json:"principal,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Output:  string(output.FormatTable),
		Current: DefaultProfile,
		Profiles: map[string]Profile{
			DefaultProfile: {
				Addr:        serverconfig.DefaultRedisAddr,
				AdminSocket: serverconfig.DefaultLocalSocket,
				HTTPAddr:    serverconfig.DefaultHTTPAddr,
			},
		},
	}
}

// Active returns the current profile, or the zero Profile when it is not
// defined.
func (c *CLIConfig) Active() Profile {
	return c.Profiles[c.Current]
}

// Validate checks the output format and the current profile reference.
func (c *CLIConfig) Validate() error {
	if _, err := output.ParseFormat(c.Output); err != nil {
		return err
	}
	if c.Current != "" {
		if _, ok := c.Profiles[c.Current]; !ok {
			return fmt.Errorf("current profile %q is not defined", c.Current)
		}
	}
	return nil
}

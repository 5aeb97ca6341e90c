package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	cliconfig "github.com/yndnr/keyvault-go/internal/cli/config"
	"github.com/yndnr/keyvault-go/internal/cli/connection"
	"github.com/yndnr/keyvault-go/internal/cli/output"
	"github.com/yndnr/keyvault-go/internal/infra/buildinfo"
)

const settingsKey = "settings"

// App creates the CLI application.
func App() *cli.App {
	app := &cli.App{
		Name:    "kvault-cli",
		Usage:   "Key vault command-line client",
		Version: buildinfo.Get().String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			ReadCommand(),
			WriteCommand(),
			DeleteCommand(),
			GetCommand(),
			StatsCommand(),
			DumpCommand(),
			ShellCommand(),
			SystemCommand(),
			ConfigCommand(),
			HashSecretCommand(),
		},
		Before: func(c *cli.Context) error {
			s, err := resolveSettings(c)
			if err != nil {
				return err
			}
			c.App.Metadata[settingsKey] = s
			return nil
		},
		Metadata: map[string]any{},
	}

	return app
}

// globalFlags returns the global CLI flags. Connection flags carry no
// default value so that the config file can fill them in.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "CLI config file",
			EnvVars: []string{"KVAULT_CLI_CONFIG"},
			Value:   cliconfig.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "profile",
			Aliases: []string{"p"},
			Usage:   "Connection profile from the config file",
			EnvVars: []string{"KVAULT_PROFILE"},
		},
		&cli.StringFlag{
			Name:    "addr",
			Aliases: []string{"a"},
			Usage:   "Server RESP address (e.g., 127.0.0.1:6399)",
			EnvVars: []string{"KVAULT_ADDR"},
		},
		&cli.StringFlag{
			Name:    "socket",
			Usage:   "Server RESP unix socket (overrides --addr)",
			EnvVars: []string{"KVAULT_SOCKET"},
		},
		&cli.StringFlag{
			Name:    "admin-socket",
			Usage:   "Server local admin socket",
			EnvVars: []string{"KVAULT_ADMIN_SOCKET"},
		},
		&cli.StringFlag{
			Name:    "http",
			Usage:   "Server HTTP address for health checks",
			EnvVars: []string{"KVAULT_HTTP_ADDR"},
		},
		&cli.StringFlag{
			Name:    "principal",
			Aliases: []string{"u"},
			Usage:   "Principal to authenticate as (name or user ordinal)",
			EnvVars: []string{"KVAULT_PRINCIPAL"},
		},
		&cli.StringFlag{
			Name:    "secret",
			Usage:   "Principal secret",
			EnvVars: []string{"KVAULT_SECRET"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			EnvVars: []string{"KVAULT_OUTPUT"},
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Per-command timeout",
			Value: 10 * time.Second,
		},
	}
}

// Settings is the effective configuration of one invocation.
type Settings struct {
	ConfigPath string
	Profile    cliconfig.Profile
	Secret     string
	Output     output.Format
	Wide       bool
	Timeout    time.Duration
}

// resolveSettings layers defaults, the config file profile and flags.
func resolveSettings(c *cli.Context) (*Settings, error) {
	path := c.String("config")
	cfg, err := cliconfig.Load(path)
	if err != nil {
		return nil, err
	}

	name := cfg.Current
	if c.IsSet("profile") {
		name = c.String("profile")
		if _, ok := cfg.Profiles[name]; !ok {
			return nil, fmt.Errorf("profile %q is not defined in %s", name, path)
		}
	}

	profile := cliconfig.Merge(cliconfig.Default().Active(), cfg.Profiles[name])
	profile = cliconfig.Merge(profile, cliconfig.Profile{
		Addr:        c.String("addr"),
		Socket:      c.String("socket"),
		AdminSocket: c.String("admin-socket"),
		HTTPAddr:    c.String("http"),
		Principal:   c.String("principal"),
	})

	outName := cfg.Output
	if c.IsSet("output") {
		outName = c.String("output")
	}
	format, err := output.ParseFormat(outName)
	if err != nil {
		return nil, err
	}

	return &Settings{
		ConfigPath: path,
		Profile:    profile,
		Secret:     c.String("secret"),
		Output:     format,
		Wide:       c.Bool("wide"),
		Timeout:    c.Duration("timeout"),
	}, nil
}

// GetSettings returns the settings resolved by App's Before hook.
func GetSettings(c *cli.Context) *Settings {
	if s, ok := c.App.Metadata[settingsKey].(*Settings); ok {
		return s
	}
	s, err := resolveSettings(c)
	if err != nil {
		return &Settings{Profile: cliconfig.Default().Active(), Output: output.FormatTable, Timeout: 10 * time.Second}
	}
	return s
}

// commandContext bounds one command by the --timeout flag.
func commandContext(c *cli.Context) (context.Context, context.CancelFunc) {
	parent := c.Context
	if parent == nil {
		parent = context.Background()
	}
	timeout := GetSettings(c).Timeout
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

// errNoPrincipal is returned by vault commands run without a principal.
var errNoPrincipal = errors.New("principal required (--principal or KVAULT_PRINCIPAL)")

// dialVault connects and authenticates using the resolved settings.
func dialVault(ctx context.Context, c *cli.Context) (*connection.VaultClient, error) {
	s := GetSettings(c)
	if s.Profile.Principal == "" {
		return nil, errNoPrincipal
	}

	network, addr := "tcp", s.Profile.Addr
	if s.Profile.Socket != "" {
		network, addr = "unix", s.Profile.Socket
	}
	client, err := connection.DialVault(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	if err := client.Auth(ctx, s.Profile.Principal, s.Secret); err != nil {
		client.Close()
		return nil, fmt.Errorf("auth as %s: %w", s.Profile.Principal, err)
	}
	return client, nil
}

// adminClient returns a client for the local admin socket.
func adminClient(c *cli.Context) *connection.SocketClient {
	return connection.NewSocketClient(GetSettings(c).Profile.AdminSocket)
}

// render writes data to the app writer in the selected format.
func render(c *cli.Context, data any) error {
	return renderTo(c, writer(c), data)
}

func renderTo(c *cli.Context, w io.Writer, data any) error {
	s := GetSettings(c)
	return output.NewFormatter(s.Output, s.Wide).Format(w, data)
}

func writer(c *cli.Context) io.Writer {
	if c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}

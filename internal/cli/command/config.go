package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	cliconfig "github.com/yndnr/keyvault-go/internal/cli/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "CLI configuration and connection profiles",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective connection settings",
				Action: configShow,
			},
			{
				Name:   "path",
				Usage:  "Print the config file path",
				Action: configPath,
			},
			{
				Name:   "validate",
				Usage:  "Validate the config file",
				Action: configValidate,
			},
			{
				Name:      "use",
				Usage:     "Select the current profile",
				ArgsUsage: "PROFILE",
				Action:    configUse,
			},
			{
				Name:      "set-profile",
				Usage:     "Create or update a profile",
				ArgsUsage: "[flags] PROFILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "RESP address"},
					&cli.StringFlag{Name: "socket", Usage: "RESP unix socket"},
					&cli.StringFlag{Name: "admin-socket", Usage: "Local admin socket"},
					&cli.StringFlag{Name: "http", Usage: "HTTP address"},
					&cli.StringFlag{Name: "principal", Usage: "AUTH principal"},
				},
				Action: configSetProfile,
			},
			{
				Name:      "delete-profile",
				Usage:     "Remove a profile",
				ArgsUsage: "PROFILE",
				Action:    configDeleteProfile,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	return render(c, GetSettings(c).Profile)
}

func configPath(c *cli.Context) error {
	fmt.Fprintln(writer(c), GetSettings(c).ConfigPath)
	return nil
}

func configValidate(c *cli.Context) error {
	path := GetSettings(c).ConfigPath
	cfg, err := cliconfig.Load(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(writer(c), "%s is valid (%d profiles, current %q)\n", path, len(cfg.Profiles), cfg.Current)
	return nil
}

// editConfig loads the config file, applies fn and saves the result.
func editConfig(c *cli.Context, fn func(cfg *cliconfig.CLIConfig) error) error {
	path := GetSettings(c).ConfigPath
	cfg, err := cliconfig.Load(path)
	if err != nil {
		return err
	}
	if err := fn(cfg); err != nil {
		return err
	}
	return cliconfig.Save(cfg, path)
}

func profileArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 || c.Args().First() == "" {
		return "", fmt.Errorf("usage: config %s %s", c.Command.Name, c.Command.ArgsUsage)
	}
	return c.Args().First(), nil
}

func configUse(c *cli.Context) error {
	name, err := profileArg(c)
	if err != nil {
		return err
	}
	err = editConfig(c, func(cfg *cliconfig.CLIConfig) error {
		if _, ok := cfg.Profiles[name]; !ok {
			return fmt.Errorf("profile %q is not defined", name)
		}
		cfg.Current = name
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(writer(c), "current profile: %s\n", name)
	return nil
}

func configSetProfile(c *cli.Context) error {
	name, err := profileArg(c)
	if err != nil {
		return err
	}
	return editConfig(c, func(cfg *cliconfig.CLIConfig) error {
		cfg.Profiles[name] = cliconfig.Merge(cfg.Profiles[name], cliconfig.Profile{
			Addr:        c.String("addr"),
			Socket:      c.String("socket"),
			AdminSocket: c.String("admin-socket"),
			HTTPAddr:    c.String("http"),
			Principal:   c.String("principal"),
		})
		if cfg.Current == "" {
			cfg.Current = name
		}
		return nil
	})
}

func configDeleteProfile(c *cli.Context) error {
	name, err := profileArg(c)
	if err != nil {
		return err
	}
	return editConfig(c, func(cfg *cliconfig.CLIConfig) error {
		if _, ok := cfg.Profiles[name]; !ok {
			return fmt.Errorf("profile %q is not defined", name)
		}
		if cfg.Current == name {
			return fmt.Errorf("profile %q is current; select another first", name)
		}
		delete(cfg.Profiles, name)
		return nil
	})
}

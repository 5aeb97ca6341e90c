package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/keyvault-go/internal/cli/connection"
	"github.com/yndnr/keyvault-go/internal/cli/output"
	"github.com/yndnr/keyvault-go/internal/core/service"
	"github.com/yndnr/keyvault-go/internal/core/vault"
)

// SystemCommand returns the system subcommand group. Everything except
// health goes through the local admin socket and needs no principal.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "Server administration over the local admin socket",
		Subcommands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show build, uptime and open sessions",
				Action: systemStatus,
			},
			{
				Name:   "totals",
				Usage:  "Show vault-wide counters",
				Action: systemTotals,
			},
			{
				Name:      "stats",
				Usage:     "Show one user's counters",
				ArgsUsage: "USER",
				Action:    systemStats,
			},
			{
				Name:   "dump",
				Usage:  "List every user's pairs",
				Flags:  []cli.Flag{reverseFlag()},
				Action: systemDump,
			},
			{
				Name:   "health",
				Usage:  "Check the HTTP health and readiness endpoints",
				Action: systemHealth,
			},
		},
	}
}

// serverStatus is the admin socket's status reply.
type serverStatus struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit" table:"wide"`
	BuildTime string `json:"build_time" yaml:"build_time" table:"wide"`
	GoVersion string `json:"go_version" yaml:"go_version" table:"wide"`
	Platform  string `json:"platform" yaml:"platform" table:"wide"`
	Uptime    string `json:"uptime" yaml:"uptime"`
	Sessions  int    `json:"sessions" yaml:"sessions"`
}

func adminCall(c *cli.Context, target any, cmd string, args ...string) error {
	ctx, cancel := commandContext(c)
	defer cancel()

	client := adminClient(c)
	defer client.Close()
	return client.Call(ctx, target, cmd, args...)
}

func systemStatus(c *cli.Context) error {
	var st serverStatus
	if err := adminCall(c, &st, "status"); err != nil {
		return err
	}
	return render(c, st)
}

func systemTotals(c *cli.Context) error {
	var tot service.Totals
	if err := adminCall(c, &tot, "totals"); err != nil {
		return err
	}
	return render(c, tot)
}

func systemStats(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: system stats USER")
	}
	var st service.UserStats
	if err := adminCall(c, &st, "stats", c.Args().First()); err != nil {
		return err
	}
	return render(c, st)
}

// dumpRow is one line of the flattened table view of a dump.
type dumpRow struct {
	User  int    `json:"user"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

func systemDump(c *cli.Context) error {
	var dump []vault.UserPairs
	if err := adminCall(c, &dump, "dump", direction(c).String()); err != nil {
		return err
	}
	if GetSettings(c).Output != output.FormatTable {
		return render(c, dump)
	}

	var rows []dumpRow
	for _, up := range dump {
		for _, p := range up.Pairs {
			rows = append(rows, dumpRow{User: up.User, Key: p.Key, Value: p.Value})
		}
	}
	return render(c, rows)
}

type healthReport struct {
	Target string `json:"target" yaml:"target"`
	Health string `json:"health" yaml:"health"`
	Ready  string `json:"ready" yaml:"ready"`
}

func systemHealth(c *cli.Context) error {
	ctx, cancel := commandContext(c)
	defer cancel()

	client := connection.NewHTTPClient(GetSettings(c).Profile.HTTPAddr)
	report := healthReport{Target: client.BaseURL()}

	var unhealthy error
	for _, probe := range []struct {
		path string
		dst  *string
	}{
		{"/health", &report.Health},
		{"/ready", &report.Ready},
	} {
		var body struct {
			Status string `json:"status"`
		}
		resp, err := client.Get(ctx, probe.path)
		if err == nil {
			err = connection.ParseResponse(resp, &body)
		}
		if err != nil {
			*probe.dst = "error: " + err.Error()
			unhealthy = fmt.Errorf("%s failed: %w", probe.path, err)
			continue
		}
		*probe.dst = body.Status
	}

	if err := render(c, report); err != nil {
		return err
	}
	return unhealthy
}

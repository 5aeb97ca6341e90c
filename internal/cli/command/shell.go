package command

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/keyvault-go/internal/cli/connection"
	"github.com/yndnr/keyvault-go/internal/cli/repl"
	"github.com/yndnr/keyvault-go/internal/core/vault"
)

// shellCommands are the commands understood inside the shell.
var shellCommands = []string{"delete", "dump", "get", "ping", "read", "rewind", "rread", "seek", "stats", "write"}

// ShellCommand returns the interactive shell command.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Open an interactive session that keeps its cursor between commands",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "history",
				Usage: "History file (empty disables persistence)",
				Value: repl.DefaultHistoryFile(),
			},
		},
		Action: runShell,
	}
}

func runShell(c *cli.Context) error {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	dialCtx, cancel := commandContext(c)
	client, err := dialVault(dialCtx, c)
	cancel()
	if err != nil {
		return err
	}
	defer client.Close()

	s := GetSettings(c)
	prompt := fmt.Sprintf("kvault[%s]> ", s.Profile.Principal)
	r := repl.New(shellExecutor(c, client), shellCommands,
		repl.WithIO(reader(c), writer(c)),
		repl.WithPrompt(prompt),
		repl.WithHistory(repl.NewHistory(c.String("history"))),
	)
	return r.Run(ctx)
}

// shellExecutor maps shell lines onto one authenticated session.
func shellExecutor(c *cli.Context, client *connection.VaultClient) repl.Executor {
	timeout := GetSettings(c).Timeout
	return func(ctx context.Context, w io.Writer, args []string) error {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		switch args[0] {
		case "ping":
			if err := client.Ping(ctx); err != nil {
				return err
			}
			fmt.Fprintln(w, "PONG")
		case "read", "rread":
			dir := vault.Forward
			if args[0] == "rread" {
				dir = vault.Reverse
			}
			n := 1
			if len(args) > 1 {
				v, err := strconv.Atoi(args[1])
				if err != nil || v < 1 {
					return fmt.Errorf("usage: %s [N]", args[0])
				}
				n = v
			}
			for i := 0; i < n; i++ {
				p, ok, err := client.Read(ctx, dir)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(w, "(end of vault)")
					break
				}
				fmt.Fprintln(w, p.String())
			}
		case "write":
			if len(args) < 3 {
				return fmt.Errorf("usage: write KEY VALUE")
			}
			n, err := client.Write(ctx, args[1], strings.Join(args[2:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "(integer) %d\n", n)
		case "delete":
			if _, err := client.Delete(ctx); err != nil {
				return err
			}
			fmt.Fprintln(w, "OK")
		case "seek":
			if len(args) < 3 {
				return fmt.Errorf("usage: seek KEY VALUE")
			}
			found, err := client.Seek(ctx, args[1], strings.Join(args[2:], " "))
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintln(w, "(not found)")
				return nil
			}
			fmt.Fprintln(w, "OK")
		case "rewind":
			dir := vault.Forward
			if len(args) > 1 {
				dir = vault.ParseDirection(args[1])
			}
			if err := client.Rewind(ctx, dir); err != nil {
				return err
			}
			fmt.Fprintln(w, "OK")
		case "get":
			if len(args) != 2 {
				return fmt.Errorf("usage: get KEY")
			}
			values, err := client.Get(ctx, args[1])
			if err != nil {
				return err
			}
			return renderTo(c, w, values)
		case "stats":
			st, err := client.Stats(ctx)
			if err != nil {
				return err
			}
			return renderTo(c, w, st)
		case "dump":
			dir := vault.Forward
			if len(args) > 1 {
				dir = vault.ParseDirection(args[1])
			}
			pairs, err := client.Dump(ctx, dir)
			if err != nil {
				return err
			}
			return renderTo(c, w, pairs)
		default:
			return repl.ErrUnknownCommand
		}
		return nil
	}
}

package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/keyvault-go/internal/core/vault"
)

func reverseFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "reverse",
		Aliases: []string{"r"},
		Usage:   "Walk from the last pair towards the first",
	}
}

func direction(c *cli.Context) vault.Direction {
	if c.Bool("reverse") {
		return vault.Reverse
	}
	return vault.Forward
}

// pairArgs reads "<key> <value>" from the arguments. The value is every
// argument after the key joined by single spaces.
func pairArgs(c *cli.Context) (string, string, error) {
	if c.NArg() < 2 {
		return "", "", fmt.Errorf("usage: %s %s", c.Command.Name, c.Command.ArgsUsage)
	}
	args := c.Args().Slice()
	return args[0], strings.Join(args[1:], " "), nil
}

// ReadCommand returns the read command.
func ReadCommand() *cli.Command {
	return &cli.Command{
		Name:  "read",
		Usage: "Read pairs in sequence order",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "Stop after N pairs (0 = all)",
			},
			&cli.StringFlag{
				Name:  "from",
				Usage: "Start at the pair \"<key> <value>\" instead of an end",
			},
			reverseFlag(),
		},
		Action: vaultRead,
	}
}

func vaultRead(c *cli.Context) error {
	ctx, cancel := commandContext(c)
	defer cancel()

	client, err := dialVault(ctx, c)
	if err != nil {
		return err
	}
	defer client.Close()

	dir := direction(c)
	if from := c.String("from"); from != "" {
		key, value, ok := strings.Cut(from, " ")
		if !ok {
			return fmt.Errorf("--from wants \"<key> <value>\"")
		}
		found, err := client.Seek(ctx, key, value)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("pair %q not found", from)
		}
	} else if err := client.Rewind(ctx, dir); err != nil {
		return err
	}

	limit := c.Int("count")
	pairs := []vault.Pair{}
	for limit <= 0 || len(pairs) < limit {
		p, ok, err := client.Read(ctx, dir)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		pairs = append(pairs, p)
	}
	return render(c, pairs)
}

// WriteCommand returns the write command.
func WriteCommand() *cli.Command {
	return &cli.Command{
		Name:      "write",
		Aliases:   []string{"put"},
		Usage:     "Insert a pair",
		ArgsUsage: "KEY VALUE",
		Action:    vaultWrite,
	}
}

func vaultWrite(c *cli.Context) error {
	key, value, err := pairArgs(c)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(c)
	defer cancel()

	client, err := dialVault(ctx, c)
	if err != nil {
		return err
	}
	defer client.Close()

	n, err := client.Write(ctx, key, value)
	if err != nil {
		return err
	}
	return render(c, struct {
		Key     string `json:"key" yaml:"key"`
		Value   string `json:"value" yaml:"value"`
		Written int    `json:"written" yaml:"written"`
	}{key, value, n})
}

// DeleteCommand returns the delete command.
func DeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete one occurrence of a pair",
		ArgsUsage: "KEY VALUE",
		Action:    vaultDelete,
	}
}

var errPairNotFound = errors.New("pair not found")

func vaultDelete(c *cli.Context) error {
	key, value, err := pairArgs(c)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(c)
	defer cancel()

	client, err := dialVault(ctx, c)
	if err != nil {
		return err
	}
	defer client.Close()

	found, err := client.Seek(ctx, key, value)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s %s", errPairNotFound, key, value)
	}
	if _, err := client.Delete(ctx); err != nil {
		return err
	}
	fmt.Fprintf(writer(c), "deleted %s %s\n", key, value)
	return nil
}

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "List every value of a key in insertion order",
		ArgsUsage: "KEY",
		Action:    vaultGet,
	}
}

func vaultGet(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: get KEY")
	}

	ctx, cancel := commandContext(c)
	defer cancel()

	client, err := dialVault(ctx, c)
	if err != nil {
		return err
	}
	defer client.Close()

	values, err := client.Get(ctx, c.Args().First())
	if err != nil {
		return err
	}
	return render(c, values)
}

// StatsCommand returns the stats command.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Show the authenticated user's counters",
		Action: vaultStats,
	}
}

func vaultStats(c *cli.Context) error {
	ctx, cancel := commandContext(c)
	defer cancel()

	client, err := dialVault(ctx, c)
	if err != nil {
		return err
	}
	defer client.Close()

	st, err := client.Stats(ctx)
	if err != nil {
		return err
	}
	return render(c, st)
}

// DumpCommand returns the dump command.
func DumpCommand() *cli.Command {
	return &cli.Command{
		Name:   "dump",
		Usage:  "List the authenticated user's pairs",
		Flags:  []cli.Flag{reverseFlag()},
		Action: vaultDump,
	}
}

func vaultDump(c *cli.Context) error {
	ctx, cancel := commandContext(c)
	defer cancel()

	client, err := dialVault(ctx, c)
	if err != nil {
		return err
	}
	defer client.Close()

	pairs, err := client.Dump(ctx, direction(c))
	if err != nil {
		return err
	}
	return render(c, pairs)
}

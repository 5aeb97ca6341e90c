package command

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/keyvault-go/internal/core/domain"
)

// HashSecretCommand returns the hash-secret command, which produces a
// secret_hash value for the server's identity.principals list.
func HashSecretCommand() *cli.Command {
	return &cli.Command{
		Name:        "hash-secret",
		Usage:       "Hash a principal secret for the server config",
		ArgsUsage:   "[SECRET]",
		Description: "Reads the secret from the first line of stdin when no argument is given.",
		Action:      hashSecret,
	}
}

func hashSecret(c *cli.Context) error {
	secret := c.Args().First()
	if secret == "" {
		var err error
		secret, err = readSecretLine(reader(c))
		if err != nil {
			return err
		}
	}
	if secret == "" {
		return fmt.Errorf("empty secret")
	}

	hash, err := domain.HashSecret(secret)
	if err != nil {
		return err
	}
	fmt.Fprintln(writer(c), hash)
	return nil
}

func readSecretLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func reader(c *cli.Context) io.Reader {
	if c.App.Reader != nil {
		return c.App.Reader
	}
	return os.Stdin
}

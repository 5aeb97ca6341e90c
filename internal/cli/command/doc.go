// Package command defines the kvault-cli commands on urfave/cli/v2.
//
//   - root.go: App, global flags and settings resolution
//   - vault.go: one-shot session commands (read, write, delete, get, stats, dump)
//   - shell.go: interactive session
//   - system.go: local admin socket and HTTP health commands
//   - config.go: CLI profiles
//   - secret.go: hash-secret
//
// Each one-shot command opens its own connection, so the device cursor
// does not survive between invocations. Use the shell for cursor work.
package command

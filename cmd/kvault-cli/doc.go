// Package main provides the entry point for kvault-cli.
//
// kvault-cli talks to kvault-server over RESP for vault sessions and
// over the local admin socket for administration:
//
//	kvault-cli -u alice --secret ... write colour blue
//	kvault-cli -u alice read --reverse -n 10
//	kvault-cli -u alice shell
//	kvault-cli system totals -o json
//	echo -n secret | kvault-cli hash-secret
//
// Connection settings come from ~/.kvault/cli.yaml profiles, then
// KVAULT_* environment variables, then flags.
package main

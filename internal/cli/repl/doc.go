// Package repl provides the interactive shell of kvault-cli.
//
// A shell keeps one authenticated vault session open so that cursor
// commands (read, seek, rewind, delete) act on the same position across
// lines.
//
//   - repl.go: main loop and built-in commands (help, history, exit)
//   - completer.go: prefix suggestions for help and mistyped commands
//   - history.go: persistent command history
package repl

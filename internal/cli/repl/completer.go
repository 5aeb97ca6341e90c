package repl

import (
	"slices"
	"strings"
)

// Completer offers prefix suggestions over a fixed command set.
type Completer struct {
	commands []string
}

// NewCompleter creates a completer for commands plus the shell built-ins.
func NewCompleter(commands ...string) *Completer {
	all := append(slices.Clone(commands), builtins...)
	slices.Sort(all)
	return &Completer{commands: slices.Compact(all)}
}

// Commands returns every known command in sorted order.
func (c *Completer) Commands() []string {
	return slices.Clone(c.commands)
}

// Complete returns the commands starting with prefix.
func (c *Completer) Complete(prefix string) []string {
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}

package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrUnknownCommand is returned by an Executor for a command it does not
// handle. The shell answers with suggestions.
var ErrUnknownCommand = errors.New("unknown command")

// Executor runs one parsed command line, writing its result to w.
type Executor func(ctx context.Context, w io.Writer, args []string) error

var builtins = []string{"exit", "help", "history", "quit"}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	prompt    string
	exec      Executor
	completer *Completer
	history   *History
}

// Option configures a REPL.
type Option func(*REPL)

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *REPL) {
		r.input, r.output = in, out
	}
}

// WithPrompt sets the prompt.
func WithPrompt(p string) Option {
	return func(r *REPL) { r.prompt = p }
}

// WithHistory sets the history store.
func WithHistory(h *History) Option {
	return func(r *REPL) {
		if h != nil {
			r.history = h
		}
	}
}

// New creates a shell that dispatches lines to exec. commands lists the
// names exec understands.
func New(exec Executor, commands []string, opts ...Option) *REPL {
	r := &REPL{
		input:     os.Stdin,
		output:    os.Stdout,
		prompt:    "kvault> ",
		exec:      exec,
		completer: NewCompleter(commands...),
		history:   NewHistory(""),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reads lines until exit, EOF or ctx cancellation. Command errors are
// printed and do not stop the loop.
func (r *REPL) Run(ctx context.Context) error {
	if err := r.history.Load(); err != nil {
		fmt.Fprintf(r.output, "warning: load history: %v\n", err)
	}
	defer func() {
		if err := r.history.Save(); err != nil {
			fmt.Fprintf(r.output, "warning: save history: %v\n", err)
		}
	}()

	reader := bufio.NewReader(r.input)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(r.output, r.prompt)

		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) && line == "" {
			fmt.Fprintln(r.output)
			return nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.history.Add(line)

		args := strings.Fields(line)
		switch args[0] {
		case "exit", "quit":
			return nil
		case "help":
			r.help(args[1:])
			continue
		case "history":
			for i, e := range r.history.Entries() {
				fmt.Fprintf(r.output, "%4d  %s\n", i+1, e)
			}
			continue
		}

		if err := r.exec(ctx, r.output, args); err != nil {
			r.printError(args[0], err)
		}
	}
}

func (r *REPL) help(args []string) {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}
	for _, cmd := range r.completer.Complete(prefix) {
		fmt.Fprintf(r.output, "  %s\n", cmd)
	}
}

func (r *REPL) printError(cmd string, err error) {
	if !errors.Is(err, ErrUnknownCommand) {
		fmt.Fprintf(r.output, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(r.output, "Error: unknown command %q\n", cmd)
	if len(cmd) > 0 {
		if s := r.completer.Complete(cmd[:1]); len(s) > 0 {
			fmt.Fprintf(r.output, "Did you mean: %s\n", strings.Join(s, ", "))
		}
	}
}

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names an output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat accepts a format name in any case. Empty means table.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
}

// Formatter writes data to w.
type Formatter interface {
	Format(w io.Writer, data any) error
}

// FormatterFunc adapts a function to Formatter.
type FormatterFunc func(w io.Writer, data any) error

func (f FormatterFunc) Format(w io.Writer, data any) error { return f(w, data) }

// JSON writes data as two-space indented JSON.
var JSON = FormatterFunc(func(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
})

// YAML writes data as one YAML document.
var YAML = FormatterFunc(func(w io.Writer, data any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
})

// NewFormatter returns the formatter for format; anything unknown gets a
// table.
func NewFormatter(format Format, wide bool) Formatter {
	switch format {
	case FormatJSON:
		return JSON
	case FormatYAML:
		return YAML
	}
	return &TableFormatter{Wide: wide}
}

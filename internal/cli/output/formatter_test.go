package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewFormatter(t *testing.T) {
	var buf bytes.Buffer
	data := map[string]int{"keys": 2}

	for format, want := range map[Format]string{FormatJSON: "{\n  \"keys\": 2\n}\n", FormatYAML: "keys: 2\n"} {
		buf.Reset()
		if err := NewFormatter(format, false).Format(&buf, data); err != nil {
			t.Fatalf("%s: Format() error = %v", format, err)
		}
		if buf.String() != want {
			t.Errorf("%s: Format() = %q, want %q", format, buf.String(), want)
		}
	}

	for _, format := range []Format{FormatTable, "unknown"} {
		tf, ok := NewFormatter(format, true).(*TableFormatter)
		if !ok || !tf.Wide {
			t.Errorf("NewFormatter(%q, wide) = %T, want wide *TableFormatter", format, NewFormatter(format, true))
		}
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatTable, "JSON": FormatJSON, " yaml ": FormatYAML, "table": FormatTable} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestJSON(t *testing.T) {
	f := JSON

	var buf bytes.Buffer
	data := struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}{"alpha", "1"}
	if err := f.Format(&buf, data); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"key": "alpha"`) {
		t.Errorf("Format() = %q, missing indented key", buf.String())
	}

	buf.Reset()
	if err := f.Format(&buf, nil); err != nil {
		t.Fatalf("Format(nil) error = %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "null" {
		t.Errorf("Format(nil) = %q, want null", got)
	}
}

func TestYAML(t *testing.T) {
	f := YAML

	var buf bytes.Buffer
	data := struct {
		User  int      `yaml:"user"`
		Pairs []string `yaml:"pairs"`
	}{User: 3, Pairs: []string{"a 1", "b 2"}}
	if err := f.Format(&buf, data); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	want := "user: 3\npairs:\n  - a 1\n  - b 2\n"
	if buf.String() != want {
		t.Errorf("Format() = %q, want %q", buf.String(), want)
	}
}

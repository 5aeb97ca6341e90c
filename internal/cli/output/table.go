package output

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
)

// TableFormatter renders data as aligned columns. It accepts a *Table,
// slices of structs or scalars, maps and single structs; other values are
// written as JSON instead.
type TableFormatter struct {
	Wide      bool
	NoHeaders bool
}

func (f *TableFormatter) Format(w io.Writer, data any) error {
	var t *Table
	switch d := data.(type) {
	case nil:
		return nil
	case *Table:
		t = d
	case Table:
		t = &d
	default:
		var err error
		if t, err = toTable(data, f.Wide); err != nil {
			return JSON(w, data)
		}
	}
	return t.write(w, !f.NoHeaders)
}

func toTable(data any, wide bool) (*Table, error) {
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return &Table{}, nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return sliceToTable(v, wide)
	case reflect.Map:
		return mapToTable(v), nil
	case reflect.Struct:
		return structToTable(v, wide), nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", v.Kind())
	}
}

// column is one visible struct field.
type column struct {
	index int
	name  string
}

// columnsOf lists the struct fields shown for t.
func columnsOf(t reflect.Type, wide bool) []column {
	var cols []column
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("table")
		if tag == "-" || (strings.Contains(tag, "wide") && !wide) {
			continue
		}
		cols = append(cols, column{index: i, name: fieldName(field)})
	}
	return cols
}

// fieldName prefers the json tag name.
func fieldName(field reflect.StructField) string {
	if tag := field.Tag.Get("json"); tag != "" {
		if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
			return name
		}
	}
	return field.Name
}

func sliceToTable(v reflect.Value, wide bool) (*Table, error) {
	if v.Len() == 0 {
		return &Table{}, nil
	}

	first := indirect(v.Index(0))
	table := &Table{}

	switch first.Kind() {
	case reflect.Struct:
		cols := columnsOf(first.Type(), wide)
		for _, c := range cols {
			table.Headers = append(table.Headers, headerName(c.name))
		}
		for i := 0; i < v.Len(); i++ {
			elem := indirect(v.Index(i))
			row := make([]string, len(cols))
			for j, c := range cols {
				row[j] = formatValue(elem.Field(c.index))
			}
			table.Rows = append(table.Rows, row)
		}
	case reflect.Map, reflect.Slice:
		return nil, fmt.Errorf("nested %s elements", first.Kind())
	default:
		table.Headers = []string{"VALUE"}
		for i := 0; i < v.Len(); i++ {
			table.AddRow(formatValue(v.Index(i)))
		}
	}
	return table, nil
}

// mapToTable renders a map as KEY/VALUE rows sorted by key.
func mapToTable(v reflect.Value) *Table {
	table := &Table{Headers: []string{"KEY", "VALUE"}}
	iter := v.MapRange()
	for iter.Next() {
		table.AddRow(formatValue(iter.Key()), formatValue(iter.Value()))
	}
	sort.Slice(table.Rows, func(i, j int) bool { return table.Rows[i][0] < table.Rows[j][0] })
	return table
}

// structToTable renders one struct as FIELD/VALUE rows.
// Embedded structs are flattened into the parent.
func structToTable(v reflect.Value, wide bool) *Table {
	table := &Table{Headers: []string{"FIELD", "VALUE"}}
	appendStructRows(table, v, wide)
	return table
}

func appendStructRows(table *Table, v reflect.Value, wide bool) {
	t := v.Type()
	for _, c := range columnsOf(t, wide) {
		field := t.Field(c.index)
		if field.Anonymous && indirect(v.Field(c.index)).Kind() == reflect.Struct {
			appendStructRows(table, indirect(v.Field(c.index)), wide)
			continue
		}
		table.AddRow(c.name, formatValue(v.Field(c.index)))
	}
}

func indirect(v reflect.Value) reflect.Value {
	for (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) && !v.IsNil() {
		v = v.Elem()
	}
	return v
}

const empty = "-"

// formatValue renders one cell. Nil pointers are blank; empty strings, zero
// times and empty collections show as "-".
func formatValue(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	if v = indirect(v); (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) && v.IsNil() {
		return ""
	}

	switch x := v.Interface().(type) {
	case time.Time:
		if x.IsZero() {
			return empty
		}
		return x.Format(time.DateTime)
	case time.Duration:
		return x.String()
	}

	switch v.Kind() {
	case reflect.String:
		return orEmpty(v.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', 2, 64)
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return empty
		}
		return "[" + strconv.Itoa(v.Len()) + " items]"
	case reflect.Map:
		if v.Len() == 0 {
			return empty
		}
		return "{" + strconv.Itoa(v.Len()) + " keys}"
	}
	if b, err := json.Marshal(v.Interface()); err == nil {
		return string(b)
	}
	return fmt.Sprint(v.Interface())
}

func orEmpty(s string) string {
	if s == "" {
		return empty
	}
	return s
}

// headerName upper-cases a field name, inserting "_" at lower-to-upper
// boundaries: SessionID becomes SESSION_ID.
func headerName(s string) string {
	out := make([]byte, 0, len(s)+4)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if i > 0 && 'A' <= c && c <= 'Z' && 'a' <= s[i-1] && s[i-1] <= 'z' {
			out = append(out, '_')
		}
		out = append(out, c)
	}
	return strings.ToUpper(string(out))
}

// Table is pre-built tabular output.
type Table struct {
	Headers []string
	Rows    [][]string
}

// AddRow appends one row.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

func (t *Table) write(w io.Writer, headers bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	lines := t.Rows
	if headers && len(t.Headers) > 0 {
		lines = append([][]string{t.Headers}, lines...)
	}
	for _, cells := range lines {
		if _, err := io.WriteString(tw, strings.Join(cells, "\t")+"\n"); err != nil {
			return err
		}
	}
	return tw.Flush()
}

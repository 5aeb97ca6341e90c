// Package output renders kvault-cli results.
//
// Three formats are supported:
//
//   - table: aligned columns via text/tabwriter, with optional wide columns
//   - json: indented JSON for scripting
//   - yaml: YAML via gopkg.in/yaml.v3
//
// Struct fields carry their column names in json tags; a `table:"wide"`
// tag hides a column unless --wide is given, and `table:"-"` hides it
// entirely.
package output

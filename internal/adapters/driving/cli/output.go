package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/connect-cli/internal/adapters/driving/tui/styles"
)

// Output formats.
const (
	formatJSON   = "json"
	formatTable  = "table"
	formatPretty = "pretty"
	formatYAML   = "yaml"
)

func validFormat(f string) bool {
	switch f {
	case formatJSON, formatTable, formatPretty, formatYAML:
		return true
	}
	return false
}

// view is the tabular layout of a result, used by the table and pretty
// formats. JSON and YAML output always encode the result itself.
type view struct {
	headers []string
	rows    [][]string
}

func newView(headers ...string) *view {
	return &view{headers: headers}
}

func (v *view) add(cells ...string) {
	v.rows = append(v.rows, cells)
}

// outputFormat picks the --format flag, then the output.format setting,
// then table on a terminal and json otherwise.
func outputFormat(cmd *cobra.Command) string {
	if formatFlag != "" {
		return formatFlag
	}
	if settingsService != nil {
		if f := settingsService.OutputFormat(); f != "" {
			return f
		}
	}
	if isTerminal(cmd.OutOrStdout()) {
		return formatTable
	}
	return formatJSON
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// render writes data in the selected format. A nil v lists the fields of
// data instead.
func render(cmd *cobra.Command, data any, v *view) error {
	w := cmd.OutOrStdout()
	format := outputFormat(cmd)
	switch format {
	case formatJSON:
		return writeJSON(w, data)
	case formatYAML:
		return writeYAML(w, data)
	}

	if v == nil {
		var err error
		if v, err = fieldsView(data); err != nil {
			return err
		}
	}
	if format == formatPretty {
		writePretty(w, v)
		return nil
	}
	writeTable(w, v)
	return nil
}

func writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}

// writeYAML goes through JSON first so field names follow the json tags of
// the API types.
func writeYAML(w io.Writer, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return enc.Close()
}

func writeTable(w io.Writer, v *view) {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	header := make(table.Row, len(v.headers))
	for i, h := range v.headers {
		header[i] = h
	}
	t.AppendHeader(header)
	for _, r := range v.rows {
		row := make(table.Row, len(r))
		for i, c := range r {
			row[i] = c
		}
		t.AppendRow(row)
	}
	fmt.Fprintln(w, t.Render())
}

// writePretty prints one key/value block per row.
func writePretty(w io.Writer, v *view) {
	s := styles.DefaultStyles()
	if len(v.rows) == 0 {
		fmt.Fprintln(w, s.Muted.Render("No results"))
		return
	}

	width := 0
	for _, h := range v.headers {
		width = max(width, lipgloss.Width(h))
	}
	key := s.Key.Width(width + 1)

	for i, r := range v.rows {
		if i > 0 {
			fmt.Fprintln(w)
		}
		for j, h := range v.headers {
			value := ""
			if j < len(r) {
				value = r[j]
			}
			fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, key.Render(h), " ", s.Normal.Render(value)))
		}
	}
}

// fieldsView lays out an arbitrary value. Objects become FIELD/VALUE rows;
// arrays of objects get one column per scalar field of the first element.
func fieldsView(data any) (*view, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding output: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("decoding output: %w", err)
	}

	switch val := generic.(type) {
	case map[string]any:
		v := newView("FIELD", "VALUE")
		for _, k := range sortedKeys(val) {
			v.add(k, cell(val[k]))
		}
		return v, nil
	case []any:
		return arrayView(val), nil
	default:
		v := newView("VALUE")
		v.add(cell(val))
		return v, nil
	}
}

func arrayView(items []any) *view {
	if len(items) == 0 {
		return newView("VALUE")
	}
	first, ok := items[0].(map[string]any)
	if !ok {
		v := newView("VALUE")
		for _, it := range items {
			v.add(cell(it))
		}
		return v
	}

	var cols []string
	for _, k := range sortedKeys(first) {
		if isScalar(first[k]) {
			cols = append(cols, k)
		}
	}
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = strings.ToUpper(c)
	}
	v := newView(headers...)
	for _, it := range items {
		obj, _ := it.(map[string]any)
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = cell(obj[c])
		}
		v.add(row...)
	}
	return v
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, float64, bool:
		return true
	}
	return false
}

// cell formats a decoded JSON value for a table cell.
func cell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(raw)
	}
}

func timeCell(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

func unixCell(sec int64) string {
	if sec == 0 {
		return ""
	}
	return timeCell(time.Unix(sec, 0))
}

func boolCell(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

// sortRows orders rows by their first cell.
func sortRows(v *view) {
	sort.SliceStable(v.rows, func(i, j int) bool { return v.rows[i][0] < v.rows[j][0] })
}

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/termenv"
)

// Formatter is the interface for output formatting
type Formatter interface {
	Print(data any) error
	PrintList(items any, columns []Column) error
	PrintError(err error)
	PrintHint(msg string)
}

// Column defines a column for table/list output
type Column struct {
	Name  string // Display name
	Key   string // Struct field name or map key
	Width int    // Width for rich mode (0 = auto)
}

// New creates a formatter for the specified mode writing to stdout/stderr
func New(mode string) Formatter {
	return NewTo(mode, os.Stdout, os.Stderr)
}

// NewTo creates a formatter for the specified mode with explicit writers.
// Unknown modes fall back to plain.
func NewTo(mode string, out, errOut io.Writer) Formatter {
	switch mode {
	case "json":
		return NewJSON(out, errOut, false)
	case "rich":
		return newRich(out, errOut, termenv.EnvColorProfile())
	default:
		return &plainFormatter{out: out, errOut: errOut}
	}
}

// NewJSON creates a JSON formatter with optional results-only mode
func NewJSON(out, errOut io.Writer, resultsOnly bool) Formatter {
	return &jsonFormatter{out: out, errOut: errOut, resultsOnly: resultsOnly}
}

// field is one name/value pair of a printed record
type field struct {
	name  string
	value string
}

// recordFields flattens a struct (by field name) or a map (by sorted key).
// ok is false for any other kind.
func recordFields(data any) (fields []field, ok bool) {
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			fields = append(fields, field{name: t.Field(i).Name, value: fmt.Sprint(v.Field(i).Interface())})
		}
		return fields, true
	case reflect.Map:
		for _, k := range v.MapKeys() {
			fields = append(fields, field{name: fmt.Sprint(k.Interface()), value: fmt.Sprint(v.MapIndex(k).Interface())})
		}
		sort.Slice(fields, func(i, j int) bool { return fields[i].name < fields[j].name })
		return fields, true
	}
	return nil, false
}

// cell returns the column value of one list item
func cell(item reflect.Value, key string) string {
	if item.Kind() == reflect.Pointer || item.Kind() == reflect.Interface {
		item = item.Elem()
	}

	var v reflect.Value
	switch item.Kind() {
	case reflect.Map:
		v = item.MapIndex(reflect.ValueOf(key))
	case reflect.Struct:
		v = item.FieldByName(key)
	}
	if !v.IsValid() {
		return ""
	}
	return fmt.Sprint(v.Interface())
}

// listRows extracts column values for every element of a slice
func listRows(items any, columns []Column) ([][]string, error) {
	v := reflect.ValueOf(items)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Slice {
		return nil, fmt.Errorf("PrintList requires a slice, got %T", items)
	}

	rows := make([][]string, v.Len())
	for i := range rows {
		row := make([]string, len(columns))
		for j, col := range columns {
			row[j] = cell(v.Index(i), col.Key)
		}
		rows[i] = row
	}
	return rows, nil
}

// jsonFormatter outputs JSON
type jsonFormatter struct {
	out, errOut io.Writer
	resultsOnly bool
}

func (f *jsonFormatter) Print(data any) error {
	enc := json.NewEncoder(f.out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// PrintList wraps items in a {"data", "count"} envelope unless results-only
func (f *jsonFormatter) PrintList(items any, columns []Column) error {
	if f.resultsOnly {
		return f.Print(items)
	}

	count := 0
	if v := reflect.Indirect(reflect.ValueOf(items)); v.Kind() == reflect.Slice {
		count = v.Len()
	}

	return f.Print(map[string]any{
		"data":  items,
		"count": count,
	})
}

func (f *jsonFormatter) PrintError(err error) {
	enc := json.NewEncoder(f.errOut)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]string{"error": err.Error()})
}

// PrintHint is silent so stdout and stderr stay machine-readable
func (f *jsonFormatter) PrintHint(string) {}

// plainFormatter outputs tab-separated values
type plainFormatter struct {
	out, errOut io.Writer
}

func (f *plainFormatter) Print(data any) error {
	fields, ok := recordFields(data)
	if !ok {
		_, err := fmt.Fprintf(f.out, "%v\n", data)
		return err
	}
	for _, fd := range fields {
		fmt.Fprintf(f.out, "%s\t%s\n", fd.name, fd.value)
	}
	return nil
}

func (f *plainFormatter) PrintList(items any, columns []Column) error {
	rows, err := listRows(items, columns)
	if err != nil {
		return err
	}

	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.Name
	}
	fmt.Fprintln(f.out, strings.Join(headers, "\t"))

	for _, row := range rows {
		fmt.Fprintln(f.out, strings.Join(row, "\t"))
	}
	return nil
}

func (f *plainFormatter) PrintError(err error) {
	fmt.Fprintf(f.errOut, "error: %v\n", err)
}

func (f *plainFormatter) PrintHint(msg string) {
	fmt.Fprintf(f.errOut, "hint: %v\n", msg)
}

// richFormatter outputs styled content for terminal
type richFormatter struct {
	out, errOut io.Writer

	keyStyle, valueStyle, errorStyle, hintStyle lipgloss.Style
}

// newRich builds the styles once; an ASCII profile (NO_COLOR, dumb terminal) keeps bold only.
func newRich(out, errOut io.Writer, profile termenv.Profile) *richFormatter {
	f := &richFormatter{
		out:        out,
		errOut:     errOut,
		keyStyle:   lipgloss.NewStyle().Bold(true),
		valueStyle: lipgloss.NewStyle(),
		errorStyle: lipgloss.NewStyle().Bold(true),
		hintStyle:  lipgloss.NewStyle().Faint(true),
	}
	if profile != termenv.Ascii {
		f.keyStyle = f.keyStyle.Foreground(lipgloss.Color("33"))
		f.valueStyle = f.valueStyle.Foreground(lipgloss.Color("15"))
		f.errorStyle = f.errorStyle.Foreground(lipgloss.Color("9"))
		f.hintStyle = f.hintStyle.Foreground(lipgloss.Color("8"))
	}
	return f
}

func (f *richFormatter) Print(data any) error {
	fields, ok := recordFields(data)
	if !ok {
		_, err := fmt.Fprintf(f.out, "%v\n", data)
		return err
	}
	for _, fd := range fields {
		fmt.Fprintf(f.out, "%s: %s\n", f.keyStyle.Render(fd.name), f.valueStyle.Render(fd.value))
	}
	return nil
}

func (f *richFormatter) PrintList(items any, columns []Column) error {
	rows, err := listRows(items, columns)
	if err != nil {
		return err
	}

	RenderTable(f.out, columns, rows)
	return nil
}

func (f *richFormatter) PrintError(err error) {
	fmt.Fprintln(f.errOut, f.errorStyle.Render("error: "+err.Error()))
}

func (f *richFormatter) PrintHint(msg string) {
	fmt.Fprintln(f.errOut, f.hintStyle.Render("hint: "+msg))
}

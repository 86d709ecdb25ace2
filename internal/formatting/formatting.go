package formatting

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	pkgstrings "popauth/pkg/strings"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// ValidOutputFormats contains all valid output format values.
var ValidOutputFormats = []OutputFormat{FormatTable, FormatJSON, FormatYAML}

// ValidateOutputFormat validates that the given format string is a supported output format.
func ValidateOutputFormat(format string) error {
	switch OutputFormat(format) {
	case FormatTable, FormatJSON, FormatYAML:
		return nil
	default:
		names := make([]string, len(ValidOutputFormats))
		for i, f := range ValidOutputFormats {
			names[i] = string(f)
		}
		return fmt.Errorf("invalid output format %q: must be one of %s", format, strings.Join(names, ", "))
	}
}

// Options configures the printer behavior
type Options struct {
	Format OutputFormat
	Color  bool // Enable colored headers in table output
}

// Tabular is a result that can be shown as a table.
type Tabular interface {
	TableHeader() []string
	TableRows() [][]string
}

// Printer writes results in the configured format.
type Printer struct {
	out     io.Writer
	options Options
}

// NewPrinter creates a Printer writing to out.
func NewPrinter(out io.Writer, options Options) *Printer {
	if options.Format == "" {
		options.Format = FormatTable
	}
	return &Printer{out: out, options: options}
}

// Print writes v.
func (p *Printer) Print(v Tabular) error {
	switch p.options.Format {
	case FormatJSON:
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(p.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to convert to YAML: %w", err)
		}
		return enc.Close()
	default:
		p.table(v)
		return nil
	}
}

func (p *Printer) table(v Tabular) {
	rows := v.TableRows()
	if len(rows) == 0 {
		fmt.Fprintln(p.out, p.color(text.FgYellow, "No items found"))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(table.StyleRounded)

	header := make(table.Row, 0, len(v.TableHeader()))
	for _, h := range v.TableHeader() {
		header = append(header, p.color(text.FgHiCyan, strings.ToUpper(h)))
	}
	t.AppendHeader(header)

	for _, r := range rows {
		row := make(table.Row, len(r))
		for i, cell := range r {
			row[i] = pkgstrings.Truncate(cell, pkgstrings.DefaultCellMaxLen)
		}
		t.AppendRow(row)
	}

	t.Render()
}

func (p *Printer) color(c text.Color, s string) string {
	if !p.options.Color {
		return s
	}
	return c.Sprint(s)
}

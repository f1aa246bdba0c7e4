// Package output renders command results as YAML, JSON or a text table.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format defines the output format for CLI commands.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// DefaultFormat is used when no --output flag is given.
const DefaultFormat = FormatText

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "":
		return DefaultFormat, nil
	case FormatYAML:
		return FormatYAML, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatText, "table":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format: %s (want text, yaml or json)", s)
	}
}

// Tabular values know how to lay themselves out as a table in text mode.
type Tabular interface {
	Headers() []string
	Rows() [][]string
}

// Print writes data to stdout in the given format.
func Print(format Format, data any) error {
	return Write(os.Stdout, format, data)
}

// Write writes data to w in the given format. In text mode Tabular values
// become a table, Stringers are printed as-is and anything else falls back
// to YAML.
func Write(w io.Writer, format Format, data any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	case FormatText:
		switch v := data.(type) {
		case Tabular:
			_, err := fmt.Fprintln(w, RenderTable(v.Headers(), v.Rows(), nil))
			return err
		case fmt.Stringer:
			_, err := fmt.Fprintln(w, v.String())
			return err
		default:
			return Write(w, FormatYAML, data)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// IsStructured reports whether the format is machine readable. Commands use
// it to suppress human-oriented messages.
func IsStructured(format Format) bool {
	return format == FormatJSON || format == FormatYAML
}

// Package ux renders command output as text, JSON or YAML.
package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Formatter writes one value in a specific output format.
type Formatter interface {
	Format(data any) error
}

// FormatterFunc adapts a function to Formatter.
type FormatterFunc func(data any) error

func (f FormatterFunc) Format(data any) error { return f(data) }

// TextRenderer is implemented by values with a human-readable rendering.
type TextRenderer interface {
	RenderText(s Styles) string
}

// FormatterOptions configures NewFormatter.
type FormatterOptions struct {
	// Writer defaults to os.Stdout.
	Writer io.Writer
	// NoColor disables styling in text output.
	NoColor bool
	// Compact drops indentation from JSON and YAML.
	Compact bool
}

// Formats lists the accepted --format values.
var Formats = []string{"text", "json", "yaml"}

var formatters = map[string]func(*FormatterOptions) Formatter{
	"text": textFormatter,
	"":     textFormatter,
	"json": jsonFormatter,
	"yaml": yamlFormatter,
}

// NewFormatter returns the formatter for format.
func NewFormatter(format string, opts *FormatterOptions) (Formatter, error) {
	o := FormatterOptions{}
	if opts != nil {
		o = *opts
	}
	if o.Writer == nil {
		o.Writer = os.Stdout
	}
	build, ok := formatters[format]
	if !ok {
		return nil, fmt.Errorf("unknown format: %s (supported: %s)", format, strings.Join(Formats, ", "))
	}
	return build(&o), nil
}

func jsonFormatter(o *FormatterOptions) Formatter {
	return FormatterFunc(func(data any) error {
		enc := json.NewEncoder(o.Writer)
		if !o.Compact {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(data)
	})
}

func yamlFormatter(o *FormatterOptions) Formatter {
	return FormatterFunc(func(data any) error {
		enc := yaml.NewEncoder(o.Writer)
		if !o.Compact {
			enc.SetIndent(2)
		}
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	})
}

// textFormatter accepts a TextRenderer, a fmt.Stringer or a string.
func textFormatter(o *FormatterOptions) Formatter {
	styles := NewStyles(o.NoColor)
	return FormatterFunc(func(data any) error {
		var out string
		switch v := data.(type) {
		case TextRenderer:
			out = v.RenderText(styles)
		case fmt.Stringer:
			out = v.String()
		case string:
			out = v
		default:
			return fmt.Errorf("text output not supported for %T; use --format json or yaml", data)
		}
		_, err := fmt.Fprintln(o.Writer, out)
		return err
	})
}

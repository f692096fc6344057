package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rohankatakam/labelpr/internal/labeler"
)

// Formatter renders a run summary
type Formatter interface {
	Format(summary *labeler.Summary, w io.Writer) error
}

// Format names an output format
type Format string

const (
	FormatQuiet Format = "quiet" // one line, for hooks
	FormatText  Format = "text"  // counts plus per-spec details
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat accepts the format names case-insensitively
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatQuiet, FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return DefaultFormat(), nil
	default:
		return "", fmt.Errorf("unknown output format %q (want quiet, text, json or yaml)", name)
	}
}

// NewFormatter creates the formatter for format
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatQuiet:
		return &QuietFormatter{}
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TextFormatter{}
	}
}

// DefaultFormat returns appropriate default based on environment
func DefaultFormat() Format {
	// Hook context (GIT_AUTHOR_DATE set by git)
	if os.Getenv("GIT_AUTHOR_DATE") != "" {
		return FormatQuiet
	}
	return FormatText
}

package output

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/labelpr/internal/labeler"
)

// JSONFormatter outputs the summary as indented JSON
type JSONFormatter struct{}

func (f *JSONFormatter) Format(s *labeler.Summary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// YAMLFormatter outputs the summary as YAML
type YAMLFormatter struct{}

func (f *YAMLFormatter) Format(s *labeler.Summary, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

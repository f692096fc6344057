package config

import (
	"fmt"
	"strings"

	"github.com/rohankatakam/labelpr/internal/errors"
	"github.com/rohankatakam/labelpr/internal/models"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nwarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", warn))
		}
	}

	return sb.String()
}

// Err converts a failed result into a ConfigError, nil otherwise
func (vr *ValidationResult) Err() error {
	if !vr.HasErrors() {
		return nil
	}
	return errors.ConfigError(strings.TrimSpace(vr.Error()))
}

// Validate checks the settings the run depends on. specs are the already
// parsed refspecs; at least one is required.
func (c *Config) Validate(specs []models.RefSpec) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if len(specs) == 0 {
		result.AddError("no refspecs given (pass refpattern:basebranches:urlprefix arguments or set 'specs')")
	}

	if c.Repo == "" {
		result.AddError("repo path is empty")
	}

	if !strings.HasPrefix(c.NotesRef, "refs/notes/") {
		result.AddError("notes_ref %q must live under refs/notes/", c.NotesRef)
	}

	if c.Workers < 1 {
		result.AddError("workers must be at least 1, got %d", c.Workers)
	}

	if c.Signature.Name == "" || c.Signature.Email == "" {
		result.AddWarning("note signature incomplete, git will fall back to user.name/user.email")
	}

	seen := make(map[string]bool)
	for _, spec := range specs {
		if seen[spec.RefPattern] {
			result.AddWarning("ref pattern %q appears in more than one spec", spec.RefPattern)
		}
		seen[spec.RefPattern] = true

		if !strings.Contains(spec.URLPrefix, "://") {
			result.AddWarning("url prefix %q does not look like a URL", spec.URLPrefix)
		}
	}

	return result
}

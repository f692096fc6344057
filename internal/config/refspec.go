package config

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/rohankatakam/labelpr/internal/errors"
	"github.com/rohankatakam/labelpr/internal/models"
)

// ParseRefSpec parses a `refpattern:basebranches:urlprefix` triplet. Only the
// first two colons separate fields since URL prefixes carry their own.
func ParseRefSpec(arg string) (models.RefSpec, error) {
	fields := strings.SplitN(arg, ":", 3)
	if len(fields) != 3 {
		return models.RefSpec{}, errors.ConfigErrorf(
			"malformed spec %q: expected refpattern:basebranches:urlprefix, got %d field(s)", arg, len(fields)).
			WithContext("spec", arg)
	}

	pattern := strings.TrimSpace(fields[0])
	if pattern == "" {
		return models.RefSpec{}, errors.ConfigErrorf("malformed spec %q: empty ref pattern", arg).
			WithContext("spec", arg)
	}

	if !doublestar.ValidatePattern(pattern) {
		return models.RefSpec{}, errors.ConfigErrorf("malformed spec %q: invalid ref pattern %q", arg, pattern).
			WithContext("spec", arg)
	}

	var branches []string
	seen := make(map[string]bool)
	for _, b := range strings.Split(fields[1], ",") {
		b = strings.TrimSpace(b)
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		branches = append(branches, b)
	}
	if len(branches) == 0 {
		return models.RefSpec{}, errors.ConfigErrorf("malformed spec %q: no base branches", arg).
			WithContext("spec", arg)
	}

	if fields[2] == "" {
		return models.RefSpec{}, errors.ConfigErrorf("malformed spec %q: empty url prefix", arg).
			WithContext("spec", arg)
	}

	return models.RefSpec{
		RefPattern:   pattern,
		BaseBranches: branches,
		URLPrefix:    fields[2],
	}, nil
}

// ParseRefSpecs parses every argument, failing on the first malformed one so
// no graph work starts with a partial configuration.
func ParseRefSpecs(args []string) ([]models.RefSpec, error) {
	specs := make([]models.RefSpec, 0, len(args))
	for _, arg := range args {
		spec, err := ParseRefSpec(arg)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

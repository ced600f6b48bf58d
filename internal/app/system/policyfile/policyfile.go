// Package policyfile loads the static academic policy the engine consumes:
// default capacities and per-phase deadlines.
//
// Example:
//
//	default_max_members: 4
//	default_max_teams_per_mentor: 15
//	enforce_deadlines: false
//	deadlines:
//	  abstract: "2025-02-01"              # whole day, UTC
//	  synopsis: "2025-03-01T17:00:00+05:30"
package policyfile

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/adityav2131/major-project-sub000/internal/domain/models"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Defaults applied when the file omits a value.
const (
	DefaultMaxMembers        = 4
	DefaultMaxTeamsPerMentor = 15
)

// Policy is the parsed file.
type Policy struct {
	DefaultMaxMembers        int
	DefaultMaxTeamsPerMentor int
	// EnforceDeadlines rejects late submissions instead of flagging them.
	EnforceDeadlines bool
	Deadlines        map[models.Phase]time.Time
}

// Default returns the policy used when no file is configured.
func Default() Policy {
	return Policy{
		DefaultMaxMembers:        DefaultMaxMembers,
		DefaultMaxTeamsPerMentor: DefaultMaxTeamsPerMentor,
		Deadlines:                map[models.Phase]time.Time{},
	}
}

// Deadline returns the cut-off for ph, if one is configured.
func (p Policy) Deadline(ph models.Phase) (time.Time, bool) {
	d, ok := p.Deadlines[ph]
	return d, ok
}

type file struct {
	DefaultMaxMembers        *int              `yaml:"default_max_members"`
	DefaultMaxTeamsPerMentor *int              `yaml:"default_max_teams_per_mentor"`
	EnforceDeadlines         bool              `yaml:"enforce_deadlines"`
	Deadlines                map[string]string `yaml:"deadlines"`
}

// Load reads and parses path. An empty path yields Default().
func Load(path string) (Policy, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, errors.Wrap(err, "read policy file")
	}
	p, err := Parse(data)
	if err != nil {
		return Policy{}, errors.Wrap(err, path)
	}
	return p, nil
}

// Parse decodes a policy document. Unknown keys are rejected.
func Parse(data []byte) (Policy, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return Policy{}, errors.Wrap(err, "parse policy")
	}

	p := Default()
	p.EnforceDeadlines = f.EnforceDeadlines
	if f.DefaultMaxMembers != nil {
		if *f.DefaultMaxMembers < 1 {
			return Policy{}, errors.Errorf("default_max_members must be at least 1, got %d", *f.DefaultMaxMembers)
		}
		p.DefaultMaxMembers = *f.DefaultMaxMembers
	}
	if f.DefaultMaxTeamsPerMentor != nil {
		if *f.DefaultMaxTeamsPerMentor < 0 {
			return Policy{}, errors.Errorf("default_max_teams_per_mentor must not be negative, got %d", *f.DefaultMaxTeamsPerMentor)
		}
		p.DefaultMaxTeamsPerMentor = *f.DefaultMaxTeamsPerMentor
	}
	for key, raw := range f.Deadlines {
		ph, ok := models.PhaseByKey(key)
		if !ok {
			return Policy{}, errors.Errorf("deadlines: unknown phase %q", key)
		}
		at, err := parseDeadline(raw)
		if err != nil {
			return Policy{}, errors.Wrapf(err, "deadlines.%s", key)
		}
		p.Deadlines[ph] = at
	}
	return p, nil
}

// parseDeadline accepts RFC 3339 or a bare date. A bare date covers the
// whole day in UTC.
func parseDeadline(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, errors.Errorf("want YYYY-MM-DD or RFC 3339, got %q", s)
	}
	return d.Add(24*time.Hour - time.Nanosecond), nil
}

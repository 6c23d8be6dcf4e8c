package internal

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoPatterns         = errors.New("pattern set is empty")
	ErrDuplicatePatternID = errors.New("duplicate pattern id")
)

// PatternDef is the uncompiled form of a detection rule.
type PatternDef struct {
	ID          int    `yaml:"id"`
	Pattern     string `yaml:"pattern"`
	Description string `yaml:"description"`
}

// Pattern is a compiled detection rule. Safe for concurrent use.
type Pattern struct {
	ID          int
	Description string
	re          *regexp.Regexp
}

// Source returns the expression the pattern was compiled from.
func (p Pattern) Source() string { return p.re.String() }

// PatternSet is the ordered, immutable table of patterns applied to every
// scanned line.
type PatternSet struct {
	patterns []Pattern
}

// DefaultPatternDefs returns the built-in table for Python sources.
func DefaultPatternDefs() []PatternDef {
	return []PatternDef{
		{ID: 1, Pattern: `^.*django_settings_module.*`, Description: "django settings path"},
		{ID: 2, Pattern: `^.*django_secret_key.*$`, Description: "django secret key"},
		{ID: 3, Pattern: `^.*password.*$`, Description: "password found"},
		{ID: 4, Pattern: `^.*secret.*$`, Description: "secret found"},
	}
}

// NewPatternSet compiles defs in order. Any bad definition fails the whole set.
func NewPatternSet(defs []PatternDef) (*PatternSet, error) {
	if len(defs) == 0 {
		return nil, ErrNoPatterns
	}
	seen := make(map[int]struct{}, len(defs))
	ps := make([]Pattern, 0, len(defs))
	for _, d := range defs {
		if _, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicatePatternID, d.ID)
		}
		seen[d.ID] = struct{}{}
		if d.Pattern == "" {
			return nil, fmt.Errorf("pattern %d: empty expression", d.ID)
		}
		re, err := regexp.Compile(d.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex for pattern %d %q: %w", d.ID, d.Pattern, err)
		}
		ps = append(ps, Pattern{ID: d.ID, Description: d.Description, re: re})
	}
	for _, p := range ps {
		logrus.WithFields(logrus.Fields{"id": p.ID, "regex": p.Source()}).Debug("Compiled pattern")
	}
	logrus.Debugf("Compiled %d patterns", len(ps))
	return &PatternSet{patterns: ps}, nil
}

// Patterns returns the patterns in definition order. The returned slice is a
// copy; the compiled expressions are shared.
func (s *PatternSet) Patterns() []Pattern {
	return slices.Clone(s.patterns)
}

// Len reports the number of patterns.
func (s *PatternSet) Len() int { return len(s.patterns) }

type patternFile struct {
	Patterns []PatternDef `yaml:"patterns"`
}

// LoadPatternFile reads a YAML pattern table:
//
//	patterns:
//	  - id: 1
//	    pattern: '^.*password.*$'
//	    description: password found
func LoadPatternFile(path string) ([]PatternDef, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pf patternFile
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return nil, fmt.Errorf("parse pattern file %s: %w", path, err)
	}
	if len(pf.Patterns) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoPatterns)
	}
	return pf.Patterns, nil
}

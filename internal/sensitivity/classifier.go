package sensitivity

import (
	"log/slog"
	"strings"

	"machinelaw/internal/lawspec"
)

// Classifier maps fields to sensitivity levels. Tables are injected so test
// fixtures and production configurations can coexist; there is no package
// level mutable state.
type Classifier struct {
	fields   FieldTable
	patterns []PatternGroup
	logger   *slog.Logger
}

// NewClassifier builds a classifier from explicit tables. A nil logger
// silences the default-classification warnings.
func NewClassifier(fields FieldTable, patterns []PatternGroup, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Classifier{fields: fields, patterns: patterns, logger: logger}
}

// NewDefaultClassifier builds a classifier with the standard Dutch field
// tables.
func NewDefaultClassifier(logger *slog.Logger) *Classifier {
	return NewClassifier(DefaultFieldTable(), DefaultPatternGroups(), logger)
}

// ClassifyField resolves one field to a level: exact name match first, then
// the pattern groups in fixed order, then a type-based fallback. Unclassifiable
// fields default to Ranges - fail cautious, never assumed harmless.
func (c *Classifier) ClassifyField(name, fieldType, description string) Level {
	upper := strings.ToUpper(name)

	if level, ok := c.fields[upper]; ok {
		return level
	}

	for _, group := range c.patterns {
		for _, token := range group.Tokens {
			if strings.Contains(upper, token) {
				return group.Level
			}
		}
	}

	switch fieldType {
	case "date":
		if strings.Contains(upper, "GEBOORTE") {
			return PersonalExact
		}
	case "boolean":
		return Administrative
	case "amount", "number":
		for _, token := range []string{"BEDRAG", "INKOMEN", "VERMOGEN"} {
			if strings.Contains(upper, token) {
				return PersonalExact
			}
		}
	}

	c.logger.Warn("unable to classify field, defaulting to RANGES", "field", name)
	return Ranges
}

// Score aggregates a law's sensitivity over its declared parameters, sources
// and inputs.
type Score struct {
	Max   Level
	Avg   float64
	Count int
}

// LawScore scans a specification's data requirements, using each field's
// explicit sensitivity when declared and classifying the rest. A law without
// fields scores (1, 1.0, 0) so downstream sorting never sees an empty score.
func (c *Classifier) LawScore(spec *lawspec.Specification) Score {
	var levels []Level
	for _, group := range [][]lawspec.FieldSpec{
		spec.Properties.Parameters,
		spec.Properties.Sources,
		spec.Properties.Input,
	} {
		for _, f := range group {
			levels = append(levels, c.fieldLevel(f))
		}
	}

	if len(levels) == 0 {
		return Score{Max: Administrative, Avg: 1.0, Count: 0}
	}

	var max Level
	var sum int
	for _, l := range levels {
		if l > max {
			max = l
		}
		sum += int(l)
	}
	return Score{
		Max:   max,
		Avg:   float64(sum) / float64(len(levels)),
		Count: len(levels),
	}
}

func (c *Classifier) fieldLevel(f lawspec.FieldSpec) Level {
	if f.DataSensitivity != nil {
		if l := Level(*f.DataSensitivity); l.Valid() {
			return l
		}
	}
	return c.ClassifyField(f.Name, f.Type, f.Description)
}

// Package report implements the annotation placement and report assembly
// pipeline: it pins evaluator annotations to byte ranges of the essay,
// slices the text into renderable segments, groups prose feedback into
// display blocks, and composes the final annotated report.
package report

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tutorstack/essay-tutor/internal/domain"
)

// CategoryMeta is the display and scoring metadata for one rubric category.
type CategoryMeta struct {
	ID       domain.Category `yaml:"id" json:"id"`
	Name     string          `yaml:"name" json:"name"`
	Color    string          `yaml:"color" json:"color"`
	Prefix   string          `yaml:"prefix" json:"prefix"`
	Weight   float64         `yaml:"weight" json:"weight"`
	Priority int             `yaml:"priority" json:"priority"`
}

// Rubric is a named set of scoring categories with weights on a fixed
// scale. Category weights need not sum to 1; the assembler normalizes by
// total weight.
type Rubric struct {
	ID         string         `yaml:"id" json:"id"`
	Name       string         `yaml:"name" json:"name"`
	Scale      float64        `yaml:"scale" json:"scale"`
	Categories []CategoryMeta `yaml:"categories" json:"categories"`
}

// defaultMeta is the fallback for categories the rubric does not know.
// Unknown evaluator vocabulary degrades to this instead of failing.
var defaultMeta = CategoryMeta{
	ID:     "",
	Name:   "Other",
	Color:  "#9e9e9e",
	Prefix: "N",
	Weight: 0,
}

// DefaultRubric returns the built-in six-category essay rubric used when no
// rubric file is configured.
func DefaultRubric() Rubric {
	return Rubric{
		ID:    "default",
		Name:  "Standard Essay Rubric",
		Scale: 5,
		Categories: []CategoryMeta{
			{ID: domain.CategoryGrammar, Name: "Grammar", Color: "#e53935", Prefix: "G", Weight: 0.25, Priority: 1},
			{ID: domain.CategoryVocabulary, Name: "Word Choice", Color: "#8e24aa", Prefix: "W", Weight: 0.20, Priority: 2},
			{ID: domain.CategoryStructure, Name: "Structure", Color: "#1e88e5", Prefix: "S", Weight: 0.20, Priority: 3},
			{ID: domain.CategoryDevelopment, Name: "Development", Color: "#fb8c00", Prefix: "D", Weight: 0.20, Priority: 4},
			{ID: domain.CategoryClarity, Name: "Clarity", Color: "#00897b", Prefix: "C", Weight: 0.15, Priority: 5},
			{ID: domain.CategoryStrengths, Name: "Strengths", Color: "#43a047", Prefix: "✓", Weight: 0, Priority: 6},
		},
	}
}

// LoadRubric parses a rubric from a YAML file and validates it.
func LoadRubric(path string) (Rubric, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Rubric{}, fmt.Errorf("op=report.LoadRubric: %w", err)
	}
	var r Rubric
	if err := yaml.Unmarshal(b, &r); err != nil {
		return Rubric{}, fmt.Errorf("op=report.LoadRubric: %w", err)
	}
	if err := r.Validate(); err != nil {
		return Rubric{}, fmt.Errorf("op=report.LoadRubric: %w", err)
	}
	return r, nil
}

// Validate checks the rubric's scoring contract: a positive scale, no
// negative weights, a positive total weight, and no duplicate categories.
func (r Rubric) Validate() error {
	if r.Scale <= 0 {
		return fmt.Errorf("%w: rubric scale must be positive", domain.ErrInvalidArgument)
	}
	if len(r.Categories) == 0 {
		return fmt.Errorf("%w: rubric has no categories", domain.ErrInvalidArgument)
	}
	seen := make(map[domain.Category]bool, len(r.Categories))
	total := 0.0
	for _, c := range r.Categories {
		if c.ID == "" {
			return fmt.Errorf("%w: rubric category missing id", domain.ErrInvalidArgument)
		}
		if seen[c.ID] {
			return fmt.Errorf("%w: duplicate rubric category %q", domain.ErrInvalidArgument, c.ID)
		}
		seen[c.ID] = true
		if c.Weight < 0 {
			return fmt.Errorf("%w: negative weight for category %q", domain.ErrInvalidArgument, c.ID)
		}
		total += c.Weight
	}
	if total <= 0 {
		return fmt.Errorf("%w: rubric total weight is zero", domain.ErrInvalidArgument)
	}
	return nil
}

// MetaFor returns the metadata for a category, falling back to neutral
// defaults for categories outside the rubric's vocabulary.
func (r Rubric) MetaFor(c domain.Category) CategoryMeta {
	for _, m := range r.Categories {
		if m.ID == c {
			return m
		}
	}
	m := defaultMeta
	m.ID = c
	if c != "" {
		m.Name = titleCase(string(c))
		m.Prefix = strings.ToUpper(string(c[:1]))
	}
	return m
}

// Legend lists every rubric category in priority order, regardless of
// whether the current essay used it.
func (r Rubric) Legend() []domain.LegendEntry {
	cats := make([]CategoryMeta, len(r.Categories))
	copy(cats, r.Categories)
	sort.SliceStable(cats, func(i, j int) bool { return cats[i].Priority < cats[j].Priority })
	out := make([]domain.LegendEntry, 0, len(cats))
	for _, m := range cats {
		out = append(out, domain.LegendEntry{Category: m.ID, Name: m.Name, Color: m.Color, Prefix: m.Prefix})
	}
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Package gates parses gate declarations out of plan documents and evaluates
// them against the test suite and the quality ledger.
package gates

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// PlanFileName is the fallback plan document when no project-specific plan
// exists.
const PlanFileName = "PLAN.md"

// AllPass is the test gate threshold requiring zero failures.
const AllPass Threshold = "all_pass"

// ErrBadThreshold indicates a threshold that is neither all_pass nor a
// number.
var ErrBadThreshold = errors.New("threshold not understood")

// Threshold is a gate threshold as written in the plan: "all_pass", ">=0.9",
// or a bare number. It accepts any YAML scalar so numeric and string
// spellings parse alike.
type Threshold string

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Threshold) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: expected scalar threshold", ErrBadThreshold)
	}

	*t = Threshold(strings.TrimSpace(value.Value))

	return nil
}

// Value returns the numeric component of the threshold. ">=0.9", ">= 0.9",
// and "0.9" all yield 0.9; AllPass has no numeric value.
func (t Threshold) Value() (float64, error) {
	s := strings.TrimSpace(string(t))
	s = strings.TrimSpace(strings.TrimPrefix(s, ">="))

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadThreshold, string(t))
	}

	return v, nil
}

// GateDefinition is the declarative gate block of a plan. Absent sections
// leave their gate unevaluated.
type GateDefinition struct {
	Tests      Threshold            `yaml:"tests"`
	Quality    map[string]Threshold `yaml:"quality"`
	Regression Threshold            `yaml:"regression"`
}

// planDoc is the top-level shape a gates block must have.
type planDoc struct {
	Gates *GateDefinition `yaml:"gates"`
}

// fencedYAMLRe matches fenced yaml/yml code blocks in markdown.
var fencedYAMLRe = regexp.MustCompile("(?ms)^```ya?ml[ \t]*\r?\n(.*?)^```[ \t]*$")

// bareComparatorRe matches mapping values like ">=0.9" that YAML would
// otherwise read as a folded block scalar.
var bareComparatorRe = regexp.MustCompile(`(?m)^(\s*[\w.-]+:\s*)(>=\s*[\d.]+)\s*$`)

// quoteBareComparators wraps bare ">=N" scalars in quotes so the block stays
// parseable. Plans write thresholds unquoted; YAML sees ">" as a folded
// scalar indicator.
func quoteBareComparators(block string) string {
	return bareComparatorRe.ReplaceAllString(block, `$1"$2"`)
}

// ParseGates scans plan markdown for fenced YAML blocks and returns the
// first one carrying a top-level gates key. Blocks that fail to parse or
// carry no gates key are skipped; a plan without a usable block declares no
// gates.
func ParseGates(markdown string) (*GateDefinition, bool) {
	for _, match := range fencedYAMLRe.FindAllStringSubmatch(markdown, -1) {
		block := quoteBareComparators(match[1])

		var doc planDoc

		err := yaml.Unmarshal([]byte(block), &doc)
		if err != nil {
			continue
		}

		if doc.Gates == nil {
			continue
		}

		return doc.Gates, true
	}

	return nil, false
}

// LocatePlan finds the plan document for a project: <plansDir>/<project>.md
// first, then the shared <plansDir>/PLAN.md.
func LocatePlan(plansDir, project string) (string, bool) {
	if project != "" {
		path := filepath.Join(plansDir, project+".md")
		if fileExists(path) {
			return path, true
		}
	}

	path := filepath.Join(plansDir, PlanFileName)
	if fileExists(path) {
		return path, true
	}

	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}

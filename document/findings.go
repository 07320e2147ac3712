package document

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ReviewFinding is one critique item bound to a section.
type ReviewFinding struct {
	SectionID       string `yaml:"section_id" json:"section_id" jsonschema:"description=id of the section the issue is found in"`
	Description     string `yaml:"description" json:"description" jsonschema:"description=what is wrong"`
	SuggestedAction string `yaml:"suggested_action" json:"suggested_action" jsonschema:"description=concrete change that would fix it"`
}

// ForSection filters findings targeting id, keeping their order.
func ForSection(findings []ReviewFinding, id string) []ReviewFinding {
	var out []ReviewFinding
	for _, f := range findings {
		if f.SectionID == id {
			out = append(out, f)
		}
	}
	return out
}

type findingsFile struct {
	Findings []ReviewFinding `yaml:"findings"`
}

// SaveFindings overwrites the hand-off file between the review and revise phases.
func SaveFindings(path string, findings []ReviewFinding) error {
	data, err := yaml.Marshal(findingsFile{Findings: findings})
	if err != nil {
		return fmt.Errorf("marshaling findings: %w", err)
	}
	return WriteFileAtomic(path, data)
}

// LoadFindings reads the findings written by the last review. A missing file means no findings.
func LoadFindings(path string) ([]ReviewFinding, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading findings: %w", err)
	}
	var f findingsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing findings %s: %w", path, err)
	}
	return f.Findings, nil
}

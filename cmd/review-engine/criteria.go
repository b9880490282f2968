// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/review-engine/pkg/types"
)

// criteriaFile is the on-disk representation of a project's screening
// protocol. Reviewers can keep the protocol under version control and load
// it instead of passing each criterion as a flag.
type criteriaFile struct {
	Name             string             `yaml:"name,omitempty"`
	ResearchQuestion string             `yaml:"research_question,omitempty"`
	Criteria         types.PICOCriteria `yaml:"pico_criteria"`
	Inclusion        []string           `yaml:"inclusion_criteria,omitempty"`
	Exclusion        []string           `yaml:"exclusion_criteria,omitempty"`
}

// loadCriteriaFile reads a screening protocol from a YAML file.
func loadCriteriaFile(path string) (*criteriaFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading criteria file: %w", err)
	}
	var cf criteriaFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing criteria file %s: %w", path, err)
	}
	return &cf, nil
}

// mergeCriteriaFlags overlays any explicitly set flag values onto the
// file-loaded protocol, so flags win over the file.
func mergeCriteriaFlags(cf *criteriaFile, criteria types.PICOCriteria, inclusion, exclusion []string) {
	if criteria.Population != "" {
		cf.Criteria.Population = criteria.Population
	}
	if criteria.Intervention != "" {
		cf.Criteria.Intervention = criteria.Intervention
	}
	if criteria.Comparison != "" {
		cf.Criteria.Comparison = criteria.Comparison
	}
	if criteria.Outcomes != "" {
		cf.Criteria.Outcomes = criteria.Outcomes
	}
	if len(inclusion) > 0 {
		cf.Inclusion = inclusion
	}
	if len(exclusion) > 0 {
		cf.Exclusion = exclusion
	}
}

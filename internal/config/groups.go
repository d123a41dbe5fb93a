package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// GroupsConfig is the content of the groups file.
type GroupsConfig struct {
	TargetGroups   []string `yaml:"target_groups"`
	SkipGroupCheck bool     `yaml:"skip_group_check"`
}

// LoadGroups reads the eligibility groups from a YAML file. Relative paths
// resolve against the working directory.
func LoadGroups(groupsFile string) (*GroupsConfig, error) {
	var groupsPath string
	if filepath.IsAbs(groupsFile) {
		groupsPath = groupsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		groupsPath = filepath.Join(wd, groupsFile)
	}

	data, err := os.ReadFile(groupsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", groupsFile, err)
	}

	var config GroupsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", groupsFile, err)
	}

	seen := make(map[string]bool, len(config.TargetGroups))
	groups := make([]string, 0, len(config.TargetGroups))
	for i, g := range config.TargetGroups {
		g = strings.TrimSpace(g)
		if g == "" {
			return nil, fmt.Errorf("target group at index %d is empty", i)
		}
		if !seen[g] {
			seen[g] = true
			groups = append(groups, g)
		}
	}
	config.TargetGroups = groups

	return &config, nil
}

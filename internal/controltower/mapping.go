package controltower

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed mapping.yaml
var mappingYAML []byte

// Mapping translates internal status and kill-reason codes to the codes
// Control Tower expects.
type Mapping struct {
	Statuses        map[string]string `yaml:"statuses"`
	KillReasons     map[string]string `yaml:"kill_reasons"`
	MeetingStatuses map[string]string `yaml:"meeting_statuses"`
}

// LoadMapping parses the embedded mapping table.
func LoadMapping() (*Mapping, error) {
	return parseMapping(mappingYAML)
}

func parseMapping(data []byte) (*Mapping, error) {
	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse control tower mapping: %w", err)
	}
	if len(m.Statuses) == 0 {
		return nil, fmt.Errorf("control tower mapping has no statuses")
	}
	return &m, nil
}

// Status returns the external pipeline status for internal.
func (m *Mapping) Status(internal string) (string, error) {
	ext, ok := m.Statuses[internal]
	if !ok {
		return "", fmt.Errorf("no control tower status for %q", internal)
	}
	return ext, nil
}

// KillReason returns the external kill reason. Unknown reasons map to OTHER
// when the table defines it.
func (m *Mapping) KillReason(internal string) string {
	if internal == "" {
		return ""
	}
	if ext, ok := m.KillReasons[internal]; ok {
		return ext
	}
	return m.KillReasons["other"]
}

// MeetingStatus returns the external meeting status for internal.
func (m *Mapping) MeetingStatus(internal string) (string, error) {
	ext, ok := m.MeetingStatuses[internal]
	if !ok {
		return "", fmt.Errorf("no control tower meeting status for %q", internal)
	}
	return ext, nil
}

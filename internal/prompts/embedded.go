// Package prompts provides built-in system-instruction presets,
// selectable at runtime via /system <name>.
package prompts

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed *.yaml
var embeddedFiles embed.FS

// Preset is a named system instruction loaded from YAML.
type Preset struct {
	Name        string `yaml:"-"` // set during loading
	Description string `yaml:"description"`
	Instruction string `yaml:"instruction"`
}

// PresetMap holds all loaded presets keyed by name.
type PresetMap map[string]Preset

// LoadBuiltinPresets loads the presets embedded in the binary.
func LoadBuiltinPresets() (PresetMap, error) {
	presets := make(PresetMap)

	entries, err := embeddedFiles.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded presets: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}

		data, err := embeddedFiles.ReadFile(entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded preset file %s: %w", entry.Name(), err)
		}

		var filePresets map[string]Preset
		if err := yaml.Unmarshal(data, &filePresets); err != nil {
			return nil, fmt.Errorf("failed to parse embedded preset file %s: %w", entry.Name(), err)
		}

		for name, preset := range filePresets {
			preset.Name = name
			presets[name] = preset
		}
	}

	return presets, nil
}

// Names returns the preset names in sorted order.
func (m PresetMap) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func isYAMLFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

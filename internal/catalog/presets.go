package catalog

import (
	"embed"
	"fmt"
	"sort"
	"sync"
)

//go:embed presets/*.yaml
var presetFS embed.FS

// presetFiles maps preset names to embedded file paths
var presetFiles = map[string]string{
	"aerospace": "presets/aerospace.yaml",
	"itar-only": "presets/itar-only.yaml",
}

// DefaultPreset is used when no catalog source is given
const DefaultPreset = "aerospace"

var (
	presetMu    sync.Mutex
	presetCache = map[string]*Catalog{}
)

// GetPreset returns a built preset catalog by name, or nil if not found.
// Catalogs are immutable, so callers share the cached instance.
func GetPreset(name string) *Catalog {
	c, err := loadPreset(name)
	if err != nil {
		return nil
	}
	return c
}

// PresetData returns the raw YAML of a preset
func PresetData(name string) ([]byte, error) {
	path, ok := presetFiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q (available: %v)", name, ListPresetNames())
	}
	return presetFS.ReadFile(path)
}

func loadPreset(name string) (*Catalog, error) {
	presetMu.Lock()
	defer presetMu.Unlock()

	if cached, ok := presetCache[name]; ok {
		return cached, nil
	}

	data, err := PresetData(name)
	if err != nil {
		return nil, err
	}
	c, err := Build(data, "preset:"+name)
	if err != nil {
		return nil, err
	}

	presetCache[name] = c
	return c, nil
}

// ListPresetNames returns the names of all available presets, sorted
func ListPresetNames() []string {
	names := make([]string, 0, len(presetFiles))
	for name := range presetFiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MustGetPreset returns a preset or panics (for tests)
func MustGetPreset(name string) *Catalog {
	c, err := loadPreset(name)
	if err != nil {
		panic(fmt.Sprintf("preset %q: %v", name, err))
	}
	return c
}

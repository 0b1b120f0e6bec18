package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pack is a rule table fragment with metadata. Packs live as YAML files in
// the packs directory and extend the base table.
type Pack struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	PackVersion string `yaml:"version"`
	Author      string `yaml:"author"`
	Rules       []Rule `yaml:"rules"`
}

// PackInfo is a summary of a pack for listing.
type PackInfo struct {
	Name        string
	Description string
	Version     string
	Author      string
	Enabled     bool
	Path        string
	RuleCount   int
	Error       string
}

// LoadPacks reads every .yaml file from packsDir and appends the rules of
// enabled packs after the base rules. A file whose name starts with "_" is
// disabled. A pack that fails to parse is reported in its PackInfo and
// skipped. Rule IDs already present in the table are skipped too.
func LoadPacks(packsDir string, base *Table) (*Table, []PackInfo, error) {
	var infos []PackInfo

	entries, err := os.ReadDir(packsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil, nil
		}
		return nil, nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	result := cloneTable(base)

	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}

		path := filepath.Join(packsDir, entry.Name())
		baseName := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		enabled := !strings.HasPrefix(baseName, "_")

		pack, err := loadPack(path)
		if err != nil {
			infos = append(infos, PackInfo{
				Name:    baseName,
				Enabled: enabled,
				Path:    path,
				Error:   err.Error(),
			})
			continue
		}

		info := PackInfo{
			Name:        pack.Name,
			Description: pack.Description,
			Version:     pack.PackVersion,
			Author:      pack.Author,
			Enabled:     enabled,
			Path:        path,
			RuleCount:   len(pack.Rules),
		}
		if info.Name == "" {
			info.Name = baseName
		}
		infos = append(infos, info)

		if !enabled {
			continue
		}
		mergePackInto(result, pack)
	}

	return result, infos, nil
}

func loadPack(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("failed to parse pack %s: %w", path, err)
	}
	applyRuleDefaults(pack.Rules)

	return &pack, nil
}

func mergePackInto(target *Table, pack *Pack) {
	existing := make(map[string]bool, len(target.Rules))
	for _, r := range target.Rules {
		existing[r.ID] = true
	}
	for _, r := range pack.Rules {
		if existing[r.ID] {
			continue
		}
		existing[r.ID] = true
		target.Rules = append(target.Rules, r)
	}
}

func cloneTable(t *Table) *Table {
	clone := &Table{Version: t.Version}
	clone.Rules = make([]Rule, len(t.Rules))
	copy(clone.Rules, t.Rules)
	return clone
}

func isYAMLFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

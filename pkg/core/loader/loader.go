// Package loader decodes pipeline-produced snapshot files into
// models.BudgetSnapshot values. It accepts .json, .hjson (hand-authored
// fixtures and overrides), and .yaml/.yml. Beyond decoding it performs no
// validation: hierarchical sum consistency and id uniqueness are the
// extraction pipeline's contract, not ours. The only check is that a
// schema_version tag is present, so obviously foreign files get skipped
// instead of imported as empty snapshots.
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"budget_explorer/pkg/models"

	hjson "github.com/hjson/hjson-go/v4"
	"gopkg.in/yaml.v2"
)

// LoadFile decodes one snapshot file, dispatching on extension.
func LoadFile(path string) (*models.BudgetSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var snap models.BudgetSnapshot
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("failed to parse JSON snapshot %s: %w", path, err)
		}
	case ".hjson":
		if err := hjson.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("failed to parse Hjson snapshot %s: %w", path, err)
		}
	case ".yaml", ".yml":
		// The models carry json tags only, so YAML goes through a generic
		// decode and a JSON round-trip rather than duplicating tag sets.
		var raw interface{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse YAML snapshot %s: %w", path, err)
		}
		jsonBytes, err := json.Marshal(normalizeYAML(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to normalize YAML snapshot %s: %w", path, err)
		}
		if err := json.Unmarshal(jsonBytes, &snap); err != nil {
			return nil, fmt.Errorf("failed to decode YAML snapshot %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported snapshot format: %s", path)
	}

	if snap.Metadata.SchemaVersion == "" {
		return nil, fmt.Errorf("snapshot %s has no schema_version tag", path)
	}
	return &snap, nil
}

// LoadDirectory decodes every snapshot file directly under dir. Files with
// unknown extensions or a missing schema tag are skipped with a warning, not
// a hard failure, since data dirs commonly hold READMEs and scratch files.
func LoadDirectory(dir string) ([]*models.BudgetSnapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	snapshots := make([]*models.BudgetSnapshot, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".hjson", ".yaml", ".yml":
		default:
			continue
		}
		snap, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			fmt.Printf("[LOADER] Skipping %s: %v\n", entry.Name(), err)
			continue
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

// normalizeYAML rewrites yaml.v2's map[interface{}]interface{} trees into
// map[string]interface{} so they survive json.Marshal.
func normalizeYAML(v interface{}) interface{} {
	switch node := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(node))
		for k, val := range node {
			m[fmt.Sprintf("%v", k)] = normalizeYAML(val)
		}
		return m
	case []interface{}:
		for i := range node {
			node[i] = normalizeYAML(node[i])
		}
		return node
	default:
		return v
	}
}

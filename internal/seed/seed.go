// Package seed reads the initial data applied by the deploy step.
package seed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
)

// Load reads a seed file. ".yaml" and ".yml" files are YAML, anything else JSON.
func Load(path string) (*domain.SeedData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON decodes a JSON seed. Insurance dates keep their document order.
func ParseJSON(data []byte) (*domain.SeedData, error) {
	var seed domain.SeedData
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse json seed: %w", err)
	}
	return &seed, nil
}

// yamlSeed keeps Insurance as a raw node so mapping order survives decoding
type yamlSeed struct {
	Roles     []domain.Role `yaml:"Role"`
	Insurance yaml.Node     `yaml:"Insurance"`
}

// ParseYAML decodes a YAML seed. Insurance dates keep their document order.
func ParseYAML(data []byte) (*domain.SeedData, error) {
	var raw yamlSeed
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse yaml seed: %w", err)
	}

	seed := &domain.SeedData{Roles: raw.Roles}

	node := &raw.Insurance
	switch node.Kind {
	case 0:
		return seed, nil
	case yaml.MappingNode:
	default:
		return nil, fmt.Errorf("parse yaml seed: %w: Insurance must be a mapping keyed by date (line %d)",
			domain.ErrInvalidInput, node.Line)
	}

	payload := domain.UploadPayload{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]

		var items []domain.RateItem
		if err := value.Decode(&items); err != nil {
			return nil, fmt.Errorf("parse yaml seed: rates for %q: %w", key.Value, err)
		}
		payload.Set(key.Value, items)
	}
	seed.Insurance = payload
	return seed, nil
}

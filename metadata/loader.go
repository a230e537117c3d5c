package metadata

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/intakehq/autoflow/model"
	"gopkg.in/yaml.v3"
)

type definitionFile struct {
	Workflows []model.WorkflowDefinition `json:"workflows"`
}

// LoadDefinitions reads workflow definitions from a YAML or JSON file. The file holds
// either a list of definitions or an object with a "workflows" list.
func LoadDefinitions(path string) ([]model.WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDefinitions(data)
}

// ParseDefinitions decodes YAML into generic values first so that definitions share the
// JSON field names used by the REST API.
func ParseDefinitions(data []byte) ([]model.WorkflowDefinition, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing definitions: %w", err)
	}
	asJson, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing definitions: %w", err)
	}
	switch raw.(type) {
	case []any:
		var defs []model.WorkflowDefinition
		if err := json.Unmarshal(asJson, &defs); err != nil {
			return nil, fmt.Errorf("parsing definitions: %w", err)
		}
		return defs, nil
	case map[string]any:
		var file definitionFile
		if err := json.Unmarshal(asJson, &file); err != nil {
			return nil, fmt.Errorf("parsing definitions: %w", err)
		}
		return file.Workflows, nil
	}
	return nil, fmt.Errorf("parsing definitions: expected a list or a workflows object")
}

package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/autoflow/pkg/models"
	"gopkg.in/yaml.v3"
)

var ErrEmptyDefinition = errors.New("definition file is empty")

// LoadDefinitions reads the workflows in a JSON or YAML file (by extension). A file
// holds one workflow object or a list of them.
func LoadDefinitions(path string) ([]*models.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))

	workflows, err := DecodeDefinitions(data, ext == ".yaml" || ext == ".yml")
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return workflows, nil
}

// DecodeDefinitions decodes one workflow or a list of workflows. YAML documents are
// converted to JSON first so condition trees go through the same loader.
func DecodeDefinitions(data []byte, isYAML bool) ([]*models.Workflow, error) {
	if isYAML {
		var document any
		if err := yaml.Unmarshal(data, &document); err != nil {
			return nil, err
		}

		converted, err := json.Marshal(document)
		if err != nil {
			return nil, err
		}

		data = converted
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, ErrEmptyDefinition
	}

	if data[0] == '[' {
		var workflows []*models.Workflow
		if err := json.Unmarshal(data, &workflows); err != nil {
			return nil, err
		}

		return workflows, nil
	}

	var workflow models.Workflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, err
	}

	return []*models.Workflow{&workflow}, nil
}

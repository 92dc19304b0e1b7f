// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"pairing-workers/internal/common/validation"
)

//go:embed activities.json
var embedded []byte

// Default returns the registry compiled into the binary.
func Default() (*ActivityRegistry, error) {
	return Parse(embedded)
}

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Load reads path when given and falls back to the embedded registry otherwise.
func Load(path string) (*ActivityRegistry, error) {
	if path == "" {
		return Default()
	}
	return LoadRegistry(path)
}

func Parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	return &reg, nil
}

// Find returns the activity registered for taskType.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// InputSchema returns the input schema for taskType, or nil when none is registered.
func (r *ActivityRegistry) InputSchema(taskType string) map[string]interface{} {
	if a, ok := r.Find(taskType); ok {
		return a.InputSchema
	}
	return nil
}

// Validate reports structural problems: missing ids, malformed or duplicate task types.
func (r *ActivityRegistry) Validate() []string {
	var problems []string
	seen := map[string]bool{}
	for i, a := range r.Activities {
		if a.ID == "" {
			problems = append(problems, fmt.Sprintf("activity %d: missing id", i))
		}
		if err := validation.ValidateTaskType(a.TaskType); err != nil {
			problems = append(problems, fmt.Sprintf("activity %s: %v", a.ID, err))
		}
		if seen[a.TaskType] {
			problems = append(problems, fmt.Sprintf("activity %s: duplicate task type %s", a.ID, a.TaskType))
		}
		seen[a.TaskType] = true
	}
	return problems
}

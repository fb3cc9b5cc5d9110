package output

import (
	"encoding/json"
	"fmt"

	"github.com/jbweber/anvil/internal/vmrun"
)

// JSONFormatter formats instances as JSON.
type JSONFormatter struct{}

// FormatInstance formats a single instance as JSON.
func (f *JSONFormatter) FormatInstance(inst vmrun.Instance) (string, error) {
	data, err := json.MarshalIndent(inst, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal instance to JSON: %w", err)
	}

	return string(data) + "\n", nil
}

// FormatInstanceList formats a list of instances as a JSON array.
func (f *JSONFormatter) FormatInstanceList(instances []vmrun.Instance) (string, error) {
	if len(instances) == 0 {
		return "[]\n", nil
	}

	data, err := json.MarshalIndent(instances, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal instances to JSON: %w", err)
	}

	return string(data) + "\n", nil
}

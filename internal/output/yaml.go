package output

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/anvil/internal/vmrun"
)

// YAMLFormatter formats instances as YAML.
type YAMLFormatter struct{}

// FormatInstance formats a single instance as YAML.
func (f *YAMLFormatter) FormatInstance(inst vmrun.Instance) (string, error) {
	data, err := yaml.Marshal(inst)
	if err != nil {
		return "", fmt.Errorf("failed to marshal instance to YAML: %w", err)
	}

	return string(data), nil
}

// FormatInstanceList formats a list of instances as a YAML stream
// (multiple documents separated by ---).
func (f *YAMLFormatter) FormatInstanceList(instances []vmrun.Instance) (string, error) {
	if len(instances) == 0 {
		return "", nil
	}

	var buf bytes.Buffer

	for i, inst := range instances {
		data, err := yaml.Marshal(inst)
		if err != nil {
			return "", fmt.Errorf("failed to marshal instance %s to YAML: %w", inst.Name, err)
		}

		// Document separator between instances, not before the first one
		if i > 0 {
			buf.WriteString("---\n")
		}

		buf.Write(data)
	}

	return buf.String(), nil
}

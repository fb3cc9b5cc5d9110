package vmrun

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Instance is one running VM as reported by vmrun list.
type Instance struct {
	// Name is the descriptor's base filename without the .vmx extension.
	Name string `json:"name" yaml:"name"`

	// VMXPath is the descriptor path, the VM's identity on disk.
	VMXPath string `json:"vmx_path" yaml:"vmx_path"`
}

// List returns the currently running VMs.
func (r *Runner) List(ctx context.Context) ([]Instance, error) {
	out, err := r.Run(ctx, "list")
	if err != nil {
		return nil, fmt.Errorf("failed to list running VMs: %w", err)
	}
	return parseList(out), nil
}

// parseList extracts instances from vmrun list output, which looks like:
//
//	Total running VMs: 2
//	/srv/vms/web1/web1.vmx
//	/srv/vms/db1/db1.vmx
func parseList(out string) []Instance {
	var instances []Instance
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Total running VMs:") {
			continue
		}
		instances = append(instances, Instance{
			Name:    strings.TrimSuffix(filepath.Base(line), ".vmx"),
			VMXPath: line,
		})
	}
	return instances
}

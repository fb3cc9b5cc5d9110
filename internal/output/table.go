package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/jbweber/anvil/internal/vmrun"
)

// TableFormatter formats instances as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatInstance formats a single instance as a table row.
func (f *TableFormatter) FormatInstance(inst vmrun.Instance) (string, error) {
	return f.FormatInstanceList([]vmrun.Instance{inst})
}

// FormatInstanceList formats a list of instances as a table.
func (f *TableFormatter) FormatInstanceList(instances []vmrun.Instance) (string, error) {
	if len(instances) == 0 {
		return "No running VMs found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tVMX")
	}

	for _, inst := range instances {
		name := inst.Name
		if name == "" {
			name = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", name, inst.VMXPath)
	}

	_ = w.Flush()
	return buf.String(), nil
}

package vm

import (
	"context"

	"github.com/jbweber/anvil/internal/vmrun"
)

// commandRunner defines the vmrun operations the workflows need.
//
// In production, this is satisfied by *vmrun.Runner.
// In tests, this is satisfied by mock implementations.
type commandRunner interface {
	// Clone performs a full clone of the template into targetVMX
	Clone(ctx context.Context, templateVMX, targetVMX, name string) error

	// Start powers on the VM with a visible console
	Start(ctx context.Context, vmxPath string) error

	// Stop stops the VM in the given mode
	Stop(ctx context.Context, vmxPath string, mode vmrun.StopMode) error
}

// isoBuilder builds the cidata ISO from the two seed files.
//
// In production, this is cloudinit.BuildISO via isoBuilderFunc.
// In tests, this is satisfied by mock implementations.
type isoBuilder interface {
	BuildISO(userDataPath, metaDataPath, outputPath string) error
}

// isoBuilderFunc adapts a plain function to the isoBuilder interface.
type isoBuilderFunc func(userDataPath, metaDataPath, outputPath string) error

func (f isoBuilderFunc) BuildISO(userDataPath, metaDataPath, outputPath string) error {
	return f(userDataPath, metaDataPath, outputPath)
}

package vm

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jbweber/anvil/internal/cloudinit"
	"github.com/jbweber/anvil/internal/config"
	"github.com/jbweber/anvil/internal/vmrun"
	"github.com/jbweber/anvil/internal/vmx"
)

// CreateOptions adjusts provisioning behavior.
type CreateOptions struct {
	// WideVMXReset selects vmx.WideRemovePrefixes for the descriptor
	// rewrite, additionally stripping virtualHW, guestOS, and scsi0
	// settings from the clone.
	WideVMXReset bool
}

// Create provisions the configured VM.
//
// The pipeline runs in strict order and aborts on the first failure:
//  1. Build the cidata ISO (generating seed files if configured)
//  2. Validate prerequisite paths, reporting every missing one at once
//  3. Tear down a stale instance occupying the target directory
//  4. Full-clone the template
//  5. Rewrite the clone's descriptor to attach installer and cidata media
//  6. Power the clone on
//
// On success the VM is running with the automated install in progress; the
// install itself is the guest's responsibility and is not waited on.
func Create(ctx context.Context, s *config.Settings, opts CreateOptions) error {
	runner := vmrun.New(s.VmrunPath())
	runner.Timeout = s.CommandTimeout()

	return createWithDeps(ctx, s, runner, isoBuilderFunc(cloudinit.BuildISO), time.Sleep, opts)
}

// createWithDeps provisions a VM with injected dependencies.
// This allows for testing by accepting interfaces instead of concrete types.
func createWithDeps(ctx context.Context, s *config.Settings, runner commandRunner, builder isoBuilder, sleep func(time.Duration), opts CreateOptions) error {
	// Step 1: Build the cloud-init config image
	log.Printf("Preparing cloud-init seed files in %s...", s.AutoinstallDir)
	if err := cloudinit.EnsureSeedFiles(s); err != nil {
		return fmt.Errorf("failed to prepare cloud-init seed files: %w", err)
	}

	log.Printf("Building cidata ISO at %s...", s.CidataISO)
	if err := builder.BuildISO(s.UserDataPath(), s.MetaDataPath(), s.CidataISO); err != nil {
		return fmt.Errorf("failed to build cidata ISO: %w", err)
	}

	// Step 2: Validate prerequisites, naming every missing path at once
	log.Printf("Validating prerequisite paths...")
	if err := s.CheckPaths(); err != nil {
		return err
	}

	// Step 3: Purge a stale instance if its directory exists
	if _, err := os.Stat(s.VMDir()); err == nil {
		log.Printf("Found existing VM directory %s, tearing it down first...", s.VMDir())
		if err := teardownWithDeps(ctx, runner, s.VMXPath(), s.StopGrace(), sleep); err != nil {
			return fmt.Errorf("failed to tear down stale instance: %w", err)
		}
	}

	// Step 4: Clone the template (full clone, not linked)
	log.Printf("Cloning %s to %s...", s.TemplateVMX, s.VMXPath())
	if err := runner.Clone(ctx, s.TemplateVMX, s.VMXPath(), s.VMName); err != nil {
		return err
	}

	// Step 5: Rewrite the clone's descriptor
	log.Printf("Reconfiguring descriptor %s...", s.VMXPath())
	vmxOpts := vmx.Options{}
	if opts.WideVMXReset {
		vmxOpts.RemovePrefixes = vmx.WideRemovePrefixes
	}
	if err := vmx.Reconfigure(s.VMXPath(), s.InstallerISO, s.CidataISO, vmxOpts); err != nil {
		// The clone stays on disk in its post-clone state for inspection
		return fmt.Errorf("failed to reconfigure descriptor (clone left at %s): %w", s.VMDir(), err)
	}

	// Step 6: Power on
	log.Printf("Starting VM '%s'...", s.VMName)
	if err := runner.Start(ctx, s.VMXPath()); err != nil {
		return err
	}

	log.Printf("VM '%s' is running; automated installation is in progress", s.VMName)
	return nil
}

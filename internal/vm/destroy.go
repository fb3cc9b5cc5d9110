package vm

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jbweber/anvil/internal/config"
	"github.com/jbweber/anvil/internal/vmrun"
)

// SoftStopTimeout bounds the graceful stop attempt before escalating to a
// forced stop.
const SoftStopTimeout = 30 * time.Second

// Destroy tears down the configured VM: stop it, wait for file locks to
// release, delete its directory.
func Destroy(ctx context.Context, s *config.Settings) error {
	return DestroyVMX(ctx, s, s.VMXPath())
}

// DestroyVMX tears down the VM identified by an explicit descriptor path.
func DestroyVMX(ctx context.Context, s *config.Settings, vmxPath string) error {
	runner := vmrun.New(s.VmrunPath())
	runner.Timeout = s.CommandTimeout()

	return teardownWithDeps(ctx, runner, vmxPath, s.StopGrace(), time.Sleep)
}

// teardownWithDeps tears down a VM with injected dependencies.
// This allows for testing by accepting interfaces instead of concrete types.
func teardownWithDeps(ctx context.Context, runner commandRunner, vmxPath string, grace time.Duration, sleep func(time.Duration)) error {
	// Nothing to clean when the descriptor is gone
	if _, err := os.Stat(vmxPath); err != nil && os.IsNotExist(err) {
		log.Printf("Descriptor %s not found, nothing to clean up", vmxPath)
		return nil
	}

	// Graceful stop first; escalate to a forced stop on failure. The
	// forced stop is the last resort, so its own result is advisory only.
	log.Printf("Stopping VM %s (soft)...", vmxPath)
	stopCtx, cancel := context.WithTimeout(ctx, SoftStopTimeout)
	err := runner.Stop(stopCtx, vmxPath, vmrun.StopSoft)
	cancel()
	if err != nil {
		log.Printf("Warning: graceful stop failed (%v), forcing hard stop", err)
		if hardErr := runner.Stop(ctx, vmxPath, vmrun.StopHard); hardErr != nil {
			log.Printf("Warning: hard stop failed: %v", hardErr)
		}
	}

	// Fixed, tuned delay for the host OS to release file locks held by the
	// stopped process. Not a polled condition; a delete-with-retry loop
	// would change observable behavior.
	log.Printf("Waiting %v for file locks to release...", grace)
	sleep(grace)

	vmDir := filepath.Dir(vmxPath)
	log.Printf("Removing VM directory %s...", vmDir)
	if err := os.RemoveAll(vmDir); err != nil {
		return fmt.Errorf("failed to remove VM directory %s: %w", vmDir, err)
	}

	log.Printf("VM at %s destroyed", vmxPath)
	return nil
}

// Package vmrun drives the VMware Workstation vmrun control utility.
//
// Every operation goes through one Runner that executes vmrun with a bounded
// timeout, captures stdout/stderr, and classifies failures, so each workflow
// step gets the same external-command contract.
package vmrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// HostType is the -T argument identifying the product vmrun talks to.
// "ws" is VMware Workstation.
const HostType = "ws"

// DefaultTimeout bounds an invocation when neither the Runner nor the
// caller's context sets one.
const DefaultTimeout = 300 * time.Second

var (
	// ErrCommandNotFound reports that the vmrun binary does not exist at
	// the configured path.
	ErrCommandNotFound = errors.New("vmrun command not found")

	// ErrTimeout reports that an invocation exceeded its deadline. The
	// child process is killed best-effort; grandchildren vmrun spawned may
	// outlive it on some host platforms.
	ErrTimeout = errors.New("vmrun command timed out")
)

// ExitError reports a vmrun invocation that ran but exited non-zero. It
// carries everything needed to diagnose the failure without re-running.
type ExitError struct {
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("vmrun %s exited with code %d", strings.Join(e.Args, " "), e.ExitCode)
	if out := strings.TrimSpace(e.Stdout); out != "" {
		msg += fmt.Sprintf("; stdout: %s", out)
	}
	if errOut := strings.TrimSpace(e.Stderr); errOut != "" {
		msg += fmt.Sprintf("; stderr: %s", errOut)
	}
	return msg
}

// StopMode selects how vmrun stops a VM.
type StopMode string

const (
	// StopSoft asks the guest OS to shut down.
	StopSoft StopMode = "soft"
	// StopHard powers the VM off without involving the guest.
	StopHard StopMode = "hard"
)

// Runner executes vmrun commands.
type Runner struct {
	// Path is the vmrun executable.
	Path string

	// Timeout bounds each invocation unless the caller's context already
	// carries a deadline. Zero means DefaultTimeout.
	Timeout time.Duration
}

// New returns a Runner for the vmrun binary at path.
func New(path string) *Runner {
	return &Runner{Path: path, Timeout: DefaultTimeout}
}

// Run executes vmrun with the given arguments and returns captured stdout.
//
// Failures are classified: a missing binary wraps ErrCommandNotFound, an
// exceeded deadline wraps ErrTimeout, and a non-zero exit returns an
// *ExitError carrying argv, exit code, and captured output.
func (r *Runner) Run(ctx context.Context, args ...string) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		timeout := r.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.Path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("%w: %s %s", ErrTimeout, r.Path, strings.Join(args, " "))
	}

	var execErr *exec.Error
	if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrCommandNotFound, r.Path)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return "", &ExitError{
			Args:     args,
			ExitCode: exitErr.ExitCode(),
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
		}
	}

	// Anything else (permission denied, path is a directory, ...) is
	// surfaced as command-not-found territory: the binary is not runnable.
	return "", fmt.Errorf("%w: %s: %v", ErrCommandNotFound, r.Path, err)
}

// Clone performs a full (not linked) clone of the template descriptor into
// targetVMX, naming the new VM.
func (r *Runner) Clone(ctx context.Context, templateVMX, targetVMX, name string) error {
	_, err := r.Run(ctx, "-T", HostType, "clone", templateVMX, targetVMX, "full", "-cloneName="+name)
	if err != nil {
		return fmt.Errorf("failed to clone %s: %w", templateVMX, err)
	}
	return nil
}

// Start powers on the VM with its console visible in the Workstation UI.
func (r *Runner) Start(ctx context.Context, vmxPath string) error {
	_, err := r.Run(ctx, "start", vmxPath, "gui")
	if err != nil {
		return fmt.Errorf("failed to start %s: %w", vmxPath, err)
	}
	return nil
}

// Stop stops the VM in the given mode.
func (r *Runner) Stop(ctx context.Context, vmxPath string, mode StopMode) error {
	_, err := r.Run(ctx, "stop", vmxPath, string(mode))
	if err != nil {
		return fmt.Errorf("failed to stop %s (%s): %w", vmxPath, mode, err)
	}
	return nil
}

// Package vm provides high-level VM lifecycle workflows.
//
// This package orchestrates the low-level components (config, cloudinit,
// vmx, vmrun) into two operations:
//   - Create: provision a VM by building the cidata ISO, cloning the
//     template, rewriting the clone's descriptor, and powering it on
//   - Destroy: stop a VM and delete its on-disk state
//
// Error Handling:
//
// Create is strictly fail-fast: the first failing step aborts the pipeline
// and nothing is retried or rolled back. In particular, a clone that fails
// reconfiguration is left on disk for operator inspection. The only
// escalation is inside Destroy, where a failed graceful stop falls back to
// a forced stop whose own result is advisory.
//
// Concurrency:
//
// Workflows run strictly sequentially and assume single-operator usage.
// Concurrent invocations against the same VM directory are unsupported and
// not guarded against.
package vm

package vm

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/jbweber/anvil/internal/vmrun"
)

// mockRunner is a mock implementation of the commandRunner interface for
// testing. It records every operation in order so tests can assert the
// workflow sequence.
type mockRunner struct {
	mu sync.Mutex

	// Configurable behavior
	cloneFunc func(ctx context.Context, templateVMX, targetVMX, name string) error
	startFunc func(ctx context.Context, vmxPath string) error
	stopFunc  func(ctx context.Context, vmxPath string, mode vmrun.StopMode) error

	// Call tracking
	ops        []string // ordered operation names: "clone", "start", "stop:soft", "stop:hard"
	cloneCalls []cloneCall
	startCalls []string
	stopCalls  []stopCall
}

type cloneCall struct {
	templateVMX string
	targetVMX   string
	name        string
}

type stopCall struct {
	vmxPath string
	mode    vmrun.StopMode
}

// newMockRunner creates a mock runner whose clone writes a minimal template
// descriptor at the target path, like a real full clone would.
func newMockRunner() *mockRunner {
	m := &mockRunner{}

	m.cloneFunc = func(ctx context.Context, templateVMX, targetVMX, name string) error {
		if err := os.MkdirAll(filepath.Dir(targetVMX), 0o755); err != nil {
			return err
		}
		content := ".encoding = \"UTF-8\"\n" +
			"virtualHW.version = \"21\"\n" +
			"displayName = \"" + name + "\"\n" +
			"bios.bootOrder = \"hdd\"\n" +
			"sata0:0.present = \"TRUE\"\n" +
			"sata0:0.fileName = \"stale.iso\"\n"
		return os.WriteFile(targetVMX, []byte(content), 0o644)
	}

	m.startFunc = func(ctx context.Context, vmxPath string) error {
		return nil
	}

	m.stopFunc = func(ctx context.Context, vmxPath string, mode vmrun.StopMode) error {
		return nil
	}

	return m
}

func (m *mockRunner) Clone(ctx context.Context, templateVMX, targetVMX, name string) error {
	m.mu.Lock()
	m.ops = append(m.ops, "clone")
	m.cloneCalls = append(m.cloneCalls, cloneCall{templateVMX, targetVMX, name})
	fn := m.cloneFunc
	m.mu.Unlock()
	return fn(ctx, templateVMX, targetVMX, name)
}

func (m *mockRunner) Start(ctx context.Context, vmxPath string) error {
	m.mu.Lock()
	m.ops = append(m.ops, "start")
	m.startCalls = append(m.startCalls, vmxPath)
	fn := m.startFunc
	m.mu.Unlock()
	return fn(ctx, vmxPath)
}

func (m *mockRunner) Stop(ctx context.Context, vmxPath string, mode vmrun.StopMode) error {
	m.mu.Lock()
	m.ops = append(m.ops, "stop:"+string(mode))
	m.stopCalls = append(m.stopCalls, stopCall{vmxPath, mode})
	fn := m.stopFunc
	m.mu.Unlock()
	return fn(ctx, vmxPath, mode)
}

// mockISOBuilder is a mock implementation of the isoBuilder interface. By
// default it writes a placeholder file at the output path.
type mockISOBuilder struct {
	mu sync.Mutex

	buildFunc func(userDataPath, metaDataPath, outputPath string) error
	calls     []string // output paths
}

func newMockISOBuilder() *mockISOBuilder {
	m := &mockISOBuilder{}
	m.buildFunc = func(userDataPath, metaDataPath, outputPath string) error {
		return os.WriteFile(outputPath, []byte("iso placeholder"), 0o644)
	}
	return m
}

func (m *mockISOBuilder) BuildISO(userDataPath, metaDataPath, outputPath string) error {
	m.mu.Lock()
	m.calls = append(m.calls, outputPath)
	fn := m.buildFunc
	m.mu.Unlock()
	return fn(userDataPath, metaDataPath, outputPath)
}

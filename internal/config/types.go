// Package config defines the settings file for anvil and its validation.
//
// All paths the tool touches come from a single Settings value constructed
// once at process start and passed into each component. Nothing reads
// configuration ambiently.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultCommandTimeout bounds every vmrun invocation unless overridden.
	DefaultCommandTimeout = 300 * time.Second

	// DefaultStopGrace is how long to wait after stopping a VM for the host
	// OS to release file locks before deleting the VM directory. This is an
	// empirically tuned delay, not a polled condition.
	DefaultStopGrace = 5 * time.Second
)

// Settings represents the complete anvil configuration.
type Settings struct {
	// WorkstationDir is the VMware Workstation installation directory.
	// The vmrun control utility is expected inside it unless Vmrun
	// overrides the location.
	WorkstationDir string `yaml:"workstation_dir"`
	Vmrun          string `yaml:"vmrun_path,omitempty"`

	// VMBaseDir is the directory under which VM directories live. Each
	// provisioned instance gets a sibling directory named after it.
	VMBaseDir string `yaml:"vm_base_dir"`

	// TemplateVMX is the descriptor of the template VM that gets cloned.
	TemplateVMX string `yaml:"template_vmx"`

	// VMName is the name of the VM to provision.
	VMName string `yaml:"vm_name"`

	// InstallerISO is the OS installer image attached as the first
	// CD-ROM device of the clone.
	InstallerISO string `yaml:"installer_iso"`

	// CidataISO is where the generated cloud-init ISO is written.
	// Defaults to cidata.iso next to the autoinstall directory.
	CidataISO string `yaml:"cidata_iso,omitempty"`

	// AutoinstallDir holds the cloud-init seed files (user-data, meta-data).
	AutoinstallDir string `yaml:"autoinstall_dir"`

	// CommandTimeoutSeconds bounds vmrun invocations. Default 300.
	CommandTimeoutSeconds int `yaml:"command_timeout_seconds,omitempty"`

	// StopGraceSeconds is the lock-release wait after stopping a VM,
	// before its directory is deleted. Default 5.
	StopGraceSeconds int `yaml:"stop_grace_seconds,omitempty"`

	CloudInit *CloudInitSettings `yaml:"cloud_init,omitempty"`
}

// CloudInitSettings drives generation of the cloud-init seed files when the
// autoinstall directory does not already contain them.
// Note: Hostname is derived from FQDN (everything before the first dot).
type CloudInitSettings struct {
	FQDN             string   `yaml:"fqdn,omitempty"`
	SSHKeys          []string `yaml:"ssh_keys,omitempty"`
	RootPasswordHash string   `yaml:"root_password_hash,omitempty"`
	SSHPwAuth        *bool    `yaml:"ssh_pwauth,omitempty"` // Pointer to distinguish unset vs false
}

// invalidNameChars are characters rejected in VM names because they are not
// portable in directory names on the hosts Workstation runs on.
const invalidNameChars = `<>:"/\|?*`

// LoadFromFile loads settings from a YAML file.
func LoadFromFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	s.Normalize()

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &s, nil
}

// Normalize sanitizes user input and fills defaults.
// This is called automatically by LoadFromFile before validation.
func (s *Settings) Normalize() {
	s.VMName = strings.TrimSpace(s.VMName)

	if s.CidataISO == "" && s.AutoinstallDir != "" {
		s.CidataISO = filepath.Join(filepath.Dir(s.AutoinstallDir), "cidata.iso")
	}

	if s.CloudInit != nil {
		s.CloudInit.FQDN = strings.ToLower(strings.TrimSpace(s.CloudInit.FQDN))
	}
}

// Validate checks the settings for structural errors. It does not touch the
// filesystem - path existence is CheckPaths' job, so missing prerequisites
// can be reported all at once at workflow time.
func (s *Settings) Validate() error {
	if s.WorkstationDir == "" && s.Vmrun == "" {
		return fmt.Errorf("workstation_dir or vmrun_path is required")
	}
	if s.VMBaseDir == "" {
		return fmt.Errorf("vm_base_dir is required")
	}
	if s.TemplateVMX == "" {
		return fmt.Errorf("template_vmx is required")
	}
	if s.InstallerISO == "" {
		return fmt.Errorf("installer_iso is required")
	}
	if s.AutoinstallDir == "" {
		return fmt.Errorf("autoinstall_dir is required")
	}

	if s.VMName == "" {
		return fmt.Errorf("vm_name is required")
	}
	if strings.ContainsAny(s.VMName, invalidNameChars) {
		return fmt.Errorf("vm_name contains invalid characters: %q", s.VMName)
	}

	if s.CommandTimeoutSeconds < 0 {
		return fmt.Errorf("command_timeout_seconds must be >= 0, got %d", s.CommandTimeoutSeconds)
	}
	if s.StopGraceSeconds < 0 {
		return fmt.Errorf("stop_grace_seconds must be >= 0, got %d", s.StopGraceSeconds)
	}

	if s.CloudInit != nil {
		if err := s.CloudInit.Validate(); err != nil {
			return fmt.Errorf("cloud_init: %w", err)
		}
	}

	return nil
}

// Validate checks cloud-init seed settings.
func (c *CloudInitSettings) Validate() error {
	// FQDN must be a valid hostname with at least one dot
	// RFC 952/1123: alphanumeric and hyphens, labels separated by dots
	if c.FQDN != "" {
		fqdnPattern := `^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)+$`
		matched, err := regexp.MatchString(fqdnPattern, c.FQDN)
		if err != nil {
			return fmt.Errorf("fqdn validation error: %w", err)
		}
		if !matched {
			return fmt.Errorf("fqdn must be a valid hostname with domain (e.g., host.example.com), got %q", c.FQDN)
		}
	}

	// Validate SSH keys using golang.org/x/crypto/ssh parser
	for i, key := range c.SSHKeys {
		_, _, _, _, err := ssh.ParseAuthorizedKey([]byte(key))
		if err != nil {
			return fmt.Errorf("ssh_keys[%d] is not a valid SSH public key: %w", i, err)
		}
	}

	if c.RootPasswordHash != "" {
		if len(c.RootPasswordHash) < 10 || c.RootPasswordHash[0] != '$' {
			return fmt.Errorf("root_password_hash must be a valid crypt hash (should start with $)")
		}
	}

	return nil
}

// VmrunPath returns the path to the vmrun control utility.
func (s *Settings) VmrunPath() string {
	if s.Vmrun != "" {
		return s.Vmrun
	}
	name := "vmrun"
	if runtime.GOOS == "windows" {
		name = "vmrun.exe"
	}
	return filepath.Join(s.WorkstationDir, name)
}

// VMDir returns the target VM's storage directory. The directory is the
// unit of existence and deletion for an instance.
func (s *Settings) VMDir() string {
	return filepath.Join(s.VMBaseDir, s.VMName)
}

// VMXPath returns the target VM's descriptor path.
func (s *Settings) VMXPath() string {
	return filepath.Join(s.VMDir(), s.VMName+".vmx")
}

// UserDataPath returns the cloud-init user-data seed file path.
func (s *Settings) UserDataPath() string {
	return filepath.Join(s.AutoinstallDir, "user-data")
}

// MetaDataPath returns the cloud-init meta-data seed file path.
func (s *Settings) MetaDataPath() string {
	return filepath.Join(s.AutoinstallDir, "meta-data")
}

// CommandTimeout returns the bound for vmrun invocations.
func (s *Settings) CommandTimeout() time.Duration {
	if s.CommandTimeoutSeconds > 0 {
		return time.Duration(s.CommandTimeoutSeconds) * time.Second
	}
	return DefaultCommandTimeout
}

// StopGrace returns the lock-release wait used during teardown.
func (s *Settings) StopGrace() time.Duration {
	if s.StopGraceSeconds > 0 {
		return time.Duration(s.StopGraceSeconds) * time.Second
	}
	return DefaultStopGrace
}

// MissingPath names one absent prerequisite.
type MissingPath struct {
	Name string
	Path string
}

// MissingPathsError reports every absent prerequisite path at once, so the
// operator can fix all of them in a single pass instead of re-running.
type MissingPathsError struct {
	Missing []MissingPath
}

func (e *MissingPathsError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, m := range e.Missing {
		parts = append(parts, fmt.Sprintf("%s (%s)", m.Name, m.Path))
	}
	return "required paths not found: " + strings.Join(parts, ", ")
}

// CheckPaths confirms every external prerequisite exists on disk. Returns a
// *MissingPathsError naming all absent paths, or nil when everything is in
// place.
func (s *Settings) CheckPaths() error {
	required := []MissingPath{
		{Name: "vmrun control utility", Path: s.VmrunPath()},
		{Name: "installer ISO", Path: s.InstallerISO},
		{Name: "template VMX", Path: s.TemplateVMX},
	}

	var missing []MissingPath
	for _, r := range required {
		if _, err := os.Stat(r.Path); err != nil {
			missing = append(missing, r)
		}
	}

	if len(missing) > 0 {
		return &MissingPathsError{Missing: missing}
	}
	return nil
}

// Summary returns a human-readable dump of the effective settings, used by
// the validate command.
func (s *Settings) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "VMware Workstation:\n")
	fmt.Fprintf(&b, "  Installation directory: %s\n", s.WorkstationDir)
	fmt.Fprintf(&b, "  vmrun path:             %s\n", s.VmrunPath())
	fmt.Fprintf(&b, "VM:\n")
	fmt.Fprintf(&b, "  Base directory: %s\n", s.VMBaseDir)
	fmt.Fprintf(&b, "  Template VMX:   %s\n", s.TemplateVMX)
	fmt.Fprintf(&b, "  Name:           %s\n", s.VMName)
	fmt.Fprintf(&b, "  Directory:      %s\n", s.VMDir())
	fmt.Fprintf(&b, "  Descriptor:     %s\n", s.VMXPath())
	fmt.Fprintf(&b, "Images:\n")
	fmt.Fprintf(&b, "  Installer ISO: %s\n", s.InstallerISO)
	fmt.Fprintf(&b, "  Cidata ISO:    %s\n", s.CidataISO)
	fmt.Fprintf(&b, "Cloud-init:\n")
	fmt.Fprintf(&b, "  Autoinstall directory: %s\n", s.AutoinstallDir)
	return b.String()
}

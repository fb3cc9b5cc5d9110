// Package cloudinit renders cloud-init NoCloud seed files and packs them
// into the cidata ISO consumed by the guest's first-boot agent.
//
// See https://cloudinit.readthedocs.io/en/latest/reference/datasources/nocloud.html
package cloudinit

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jbweber/anvil/internal/config"
)

// UserData represents the cloud-config user-data structure.
// This is marshaled to YAML and prefixed with the "#cloud-config" header.
//
// See https://cloudinit.readthedocs.io/en/latest/explanation/format.html#cloud-config-data
type UserData struct {
	Hostname          string    `yaml:"hostname"`
	FQDN              string    `yaml:"fqdn"`
	SSHAuthorizedKeys []string  `yaml:"ssh_authorized_keys,omitempty"`
	Chpasswd          *Chpasswd `yaml:"chpasswd,omitempty"`
	SSHPasswordAuth   bool      `yaml:"ssh_pwauth"`
}

// Chpasswd configures user password settings.
type Chpasswd struct {
	Expire bool   `yaml:"expire"` // Whether to expire passwords on first login
	List   string `yaml:"list"`   // Format: "username:hash"
}

// MetaData represents the cloud-init meta-data structure.
type MetaData struct {
	InstanceID    string `yaml:"instance-id"`
	LocalHostname string `yaml:"local-hostname"`
}

// GenerateUserData renders the user-data content from the settings.
//
// Returns the complete file content including the "#cloud-config" header.
func GenerateUserData(s *config.Settings) (string, error) {
	if s == nil {
		return "", fmt.Errorf("settings cannot be nil")
	}

	// Derive hostname from FQDN or VM name
	hostname := s.VMName
	fqdn := s.VMName
	if s.CloudInit != nil && s.CloudInit.FQDN != "" {
		fqdn = s.CloudInit.FQDN
		hostname = strings.SplitN(fqdn, ".", 2)[0]
	}

	userData := UserData{
		Hostname:        hostname,
		FQDN:            fqdn,
		SSHPasswordAuth: false,
	}

	if s.CloudInit != nil {
		if len(s.CloudInit.SSHKeys) > 0 {
			userData.SSHAuthorizedKeys = s.CloudInit.SSHKeys
		}

		if s.CloudInit.RootPasswordHash != "" {
			userData.Chpasswd = &Chpasswd{
				Expire: false,
				List:   fmt.Sprintf("root:%s", s.CloudInit.RootPasswordHash),
			}
		}

		if s.CloudInit.SSHPwAuth != nil {
			userData.SSHPasswordAuth = *s.CloudInit.SSHPwAuth
		}
	}

	yamlBytes, err := yaml.Marshal(&userData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal user-data to YAML: %w", err)
	}

	// cloud-init ignores user-data without the #cloud-config header
	return "#cloud-config\n" + string(yamlBytes), nil
}

// GenerateMetaData renders the meta-data content from the settings.
//
// The instance-id gets a fresh UUID each time, so a reprovisioned VM always
// looks like a first boot to cloud-init even when the name is reused.
func GenerateMetaData(s *config.Settings) (string, error) {
	if s == nil {
		return "", fmt.Errorf("settings cannot be nil")
	}

	metaData := MetaData{
		InstanceID:    fmt.Sprintf("iid-%s", uuid.NewString()),
		LocalHostname: s.VMName,
	}

	yamlBytes, err := yaml.Marshal(&metaData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal meta-data to YAML: %w", err)
	}

	return string(yamlBytes), nil
}

// EnsureSeedFiles makes sure user-data and meta-data exist in the
// autoinstall directory, rendering them from the cloud_init settings when
// absent. Hand-maintained seed files are never overwritten.
//
// Returns an error if a seed file is missing and no cloud_init settings are
// available to render it from.
func EnsureSeedFiles(s *config.Settings) error {
	if s == nil {
		return fmt.Errorf("settings cannot be nil")
	}

	type seed struct {
		path     string
		generate func(*config.Settings) (string, error)
	}
	seeds := []seed{
		{path: s.UserDataPath(), generate: GenerateUserData},
		{path: s.MetaDataPath(), generate: GenerateMetaData},
	}

	for _, sd := range seeds {
		if _, err := os.Stat(sd.path); err == nil {
			continue
		}

		if s.CloudInit == nil {
			return fmt.Errorf("seed file %s is missing and no cloud_init settings are configured to generate it", sd.path)
		}

		if err := os.MkdirAll(s.AutoinstallDir, 0o755); err != nil {
			return fmt.Errorf("failed to create autoinstall directory: %w", err)
		}

		content, err := sd.generate(s)
		if err != nil {
			return err
		}
		if err := os.WriteFile(sd.path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write seed file %s: %w", sd.path, err)
		}
	}

	return nil
}

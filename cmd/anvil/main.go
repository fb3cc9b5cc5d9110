package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jbweber/anvil/internal/cloudinit"
	"github.com/jbweber/anvil/internal/config"
	"github.com/jbweber/anvil/internal/output"
	"github.com/jbweber/anvil/internal/vm"
	"github.com/jbweber/anvil/internal/vmrun"
)

var (
	version = "dev"
	commit  = "unknown"
)

// Colorized printers for command results.
var (
	successf = color.New(color.FgGreen).PrintfFunc()
	warnf    = color.New(color.FgHiMagenta).PrintfFunc()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "anvil",
	Short: "Anvil - VMware Workstation VM provisioning tool",
	Long: `Anvil is a CLI tool for provisioning VMware Workstation VMs with simple
YAML configuration.

It clones a prepared template VM, attaches an OS installer ISO and a
cloud-init cidata seed ISO, and boots the clone into a fully automated
installation. It also tears those VMs down again.`,
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "anvil.yaml", "path to the anvil configuration file")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(cidataCmd)
	rootCmd.AddCommand(validateCmd)
}

// loadSettings reads, normalizes, and validates the configuration file.
func loadSettings() (*config.Settings, error) {
	s, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration %s: %w", configPath, err)
	}
	return s, nil
}

var wideVMXReset bool

func init() {
	createCmd.Flags().BoolVar(&wideVMXReset, "wide-vmx-reset", false, "also strip virtualHW, guestOS, and scsi0 settings from the cloned descriptor")
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Provision a VM from the configured template",
	Long: `Provision a new virtual machine from the configured template.

This will:
- Build the cloud-init cidata ISO (generating seed files if configured)
- Tear down a previous instance occupying the target directory
- Full-clone the template VM
- Attach the installer ISO and cidata ISO to the clone
- Power the clone on, starting the automated installation

The installation then runs unattended inside the guest; create does not
wait for it to finish.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}

		fmt.Printf("Creating VM '%s' from template %s\n", s.VMName, s.TemplateVMX)

		if err := vm.Create(cmd.Context(), s, vm.CreateOptions{WideVMXReset: wideVMXReset}); err != nil {
			return fmt.Errorf("failed to create VM: %w", err)
		}

		successf("✓ VM '%s' is running; installation in progress\n", s.VMName)
		return nil
	},
}

var destroyCmd = &cobra.Command{
	Use:   "destroy [vmx-path]",
	Short: "Destroy a VM",
	Long: `Destroy the configured virtual machine, or the VM identified by an
explicit .vmx path.

This will:
- Stop the VM if running (soft first, then hard)
- Wait for the host to release file locks
- Delete the VM directory and everything in it`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}

		vmxPath := s.VMXPath()
		if len(args) == 1 {
			vmxPath = args[0]
		}

		fmt.Printf("Destroying VM at %s\n", vmxPath)

		if err := vm.DestroyVMX(cmd.Context(), s, vmxPath); err != nil {
			return fmt.Errorf("failed to destroy VM: %w", err)
		}

		successf("✓ VM at %s destroyed\n", vmxPath)
		return nil
	},
}

var (
	outputFormat string
	noHeaders    bool
)

func init() {
	listCmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, yaml, json)")
	listCmd.Flags().BoolVar(&noHeaders, "no-headers", false, "omit the header row in table output")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List running VMs",
	Long: `List the virtual machines currently running under VMware Workstation.

Shows each VM's name and descriptor path.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := output.ValidateFormat(outputFormat); err != nil {
			return err
		}

		s, err := loadSettings()
		if err != nil {
			return err
		}

		runner := vmrun.New(s.VmrunPath())
		runner.Timeout = s.CommandTimeout()

		instances, err := runner.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list VMs: %w", err)
		}

		formatter, err := output.NewFormatter(output.Options{
			Format:    output.Format(outputFormat),
			NoHeaders: noHeaders,
		})
		if err != nil {
			return err
		}

		formatted, err := formatter.FormatInstanceList(instances)
		if err != nil {
			return err
		}

		fmt.Print(formatted)
		return nil
	},
}

var cidataCmd = &cobra.Command{
	Use:   "cidata",
	Short: "Build the cloud-init cidata ISO",
	Long: `Build the cloud-init cidata seed ISO without provisioning a VM.

Generates user-data and meta-data in the autoinstall directory when they
do not exist yet (requires cloud_init settings), then packs them into an
ISO 9660 image with the volume identifier "cidata".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}

		if err := cloudinit.EnsureSeedFiles(s); err != nil {
			return fmt.Errorf("failed to prepare seed files: %w", err)
		}

		fmt.Printf("Building cidata ISO at %s\n", s.CidataISO)
		if err := cloudinit.BuildISO(s.UserDataPath(), s.MetaDataPath(), s.CidataISO); err != nil {
			return fmt.Errorf("failed to build cidata ISO: %w", err)
		}

		successf("✓ cidata ISO written to %s\n", s.CidataISO)
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and prerequisite paths",
	Long: `Validate the configuration file and check that the external
prerequisites (vmrun binary, installer ISO, template descriptor) exist.

Structural problems in the configuration fail the command. Missing
prerequisite paths are all reported at once.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}

		fmt.Print(s.Summary())

		if err := s.CheckPaths(); err != nil {
			warnf("\n%v\n", err)
			return fmt.Errorf("prerequisite check failed")
		}

		successf("✓ Configuration is valid and all prerequisite paths exist\n")
		return nil
	},
}

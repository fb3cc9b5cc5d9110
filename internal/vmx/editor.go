package vmx

import "strings"

// DefaultRemovePrefixes is the narrow removal set: only the device and
// firmware settings the new attachments replace. Everything else in the
// clone's descriptor survives verbatim.
var DefaultRemovePrefixes = []string{"bios", "guestinfo", "floppy", "sata0:0", "sata0:1"}

// WideRemovePrefixes additionally strips the hardware version, guest OS
// hint, and the whole scsi0 bus. This materially changes which existing
// settings survive a reconfigure - Workstation will re-derive the stripped
// values on next power-on - so it is opt-in, never the default.
var WideRemovePrefixes = []string{"bios", "guestinfo", "floppy", "sata0:0", "sata0:1", "virtualHW", "guestOS", "scsi0"}

// Options controls a Reconfigure run.
type Options struct {
	// RemovePrefixes overrides the removal set. Nil means
	// DefaultRemovePrefixes.
	RemovePrefixes []string
}

type setting struct {
	key   string
	value string
}

// Reconfigure rewrites the descriptor at path so the VM boots the installer:
// it strips every line conflicting with the new configuration, then appends
// two CD-ROM attachments (installer image on sata0:0, cidata image on
// sata0:1) and forces boot order to optical media.
//
// The result always contains exactly one definition of each sata0:0.* and
// sata0:1.* attachment key, no matter what the input contained. Reconfiguring
// an already-reconfigured descriptor converges to the same attachment state.
//
// On an I/O failure the descriptor may be left in an unknown state; callers
// must treat it as possibly corrupted.
func Reconfigure(path, installerImage, cidataImage string, opts Options) error {
	prefixes := opts.RemovePrefixes
	if prefixes == nil {
		prefixes = DefaultRemovePrefixes
	}

	d, err := Load(path)
	if err != nil {
		return err
	}

	d.RemoveByPrefix(prefixes)

	d.AppendBlank()
	for _, s := range attachmentSettings(installerImage, cidataImage) {
		d.AppendSetting(s.key, s.value)
	}

	return d.Save()
}

// attachmentSettings lists the nine settings appended by Reconfigure, in
// their fixed order.
func attachmentSettings(installerImage, cidataImage string) []setting {
	return []setting{
		{"bios.bootOrder", "cdrom"},
		{"sata0:0.present", "TRUE"},
		{"sata0:0.fileName", normalizeImagePath(installerImage)},
		{"sata0:0.deviceType", "cdrom-image"},
		{"sata0:0.startConnected", "TRUE"},
		{"sata0:1.present", "TRUE"},
		{"sata0:1.fileName", normalizeImagePath(cidataImage)},
		{"sata0:1.deviceType", "cdrom-image"},
		{"sata0:1.startConnected", "TRUE"},
	}
}

// normalizeImagePath converts Windows path separators to forward slashes,
// the form Workstation accepts on every host OS.
func normalizeImagePath(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

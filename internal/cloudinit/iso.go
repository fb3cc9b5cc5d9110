package cloudinit

import (
	"fmt"
	"os"
	"strings"

	"github.com/kdomanski/iso9660"
)

// VolumeID is the ISO-9660 volume identifier the guest's NoCloud datasource
// searches for. The value and the user-data/meta-data file names are a fixed
// contract with cloud-init.
const VolumeID = "cidata"

// MissingInputError reports cloud-init seed files that do not exist. All
// missing inputs are named at once.
type MissingInputError struct {
	Paths []string
}

func (e *MissingInputError) Error() string {
	return "required cloud-init files not found: " + strings.Join(e.Paths, ", ")
}

// BuildISO packs the two seed files into a cidata ISO at outputPath.
//
// A pre-existing file at outputPath is replaced, never merged into. When
// either input is missing the build fails with a *MissingInputError and no
// output is written.
func BuildISO(userDataPath, metaDataPath, outputPath string) error {
	var missing []string
	for _, p := range []string{userDataPath, metaDataPath} {
		if _, err := os.Stat(p); err != nil {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return &MissingInputError{Paths: missing}
	}

	// Overwrite semantics: drop any stale image before writing
	if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing image %s: %w", outputPath, err)
	}

	writer, err := iso9660.NewWriter()
	if err != nil {
		return fmt.Errorf("failed to create ISO writer: %w", err)
	}
	defer func() {
		// Cleanup of the writer's temporary files is best-effort
		_ = writer.Cleanup()
	}()

	entries := []struct {
		path string
		name string
	}{
		{path: userDataPath, name: "user-data"},
		{path: metaDataPath, name: "meta-data"},
	}

	for _, e := range entries {
		f, err := os.Open(e.path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", e.path, err)
		}
		addErr := writer.AddFile(f, e.name)
		closeErr := f.Close()
		if addErr != nil {
			return fmt.Errorf("failed to add %s to image: %w", e.name, addErr)
		}
		if closeErr != nil {
			return fmt.Errorf("failed to close %s: %w", e.path, closeErr)
		}
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create image %s: %w", outputPath, err)
	}

	if err := writer.WriteTo(out, VolumeID); err != nil {
		_ = out.Close()
		_ = os.Remove(outputPath)
		return fmt.Errorf("failed to write image %s: %w", outputPath, err)
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(outputPath)
		return fmt.Errorf("failed to close image %s: %w", outputPath, err)
	}

	return nil
}

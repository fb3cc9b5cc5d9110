package vmx

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDescriptor(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.vmx")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write descriptor fixture: %v", err)
	}
	return path
}

func readBack(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read descriptor back: %v", err)
	}
	return string(data)
}

func TestLoadSaveRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "plain LF file",
			content: ".encoding = \"UTF-8\"\ndisplayName = \"demo\"\n",
		},
		{
			name:    "CRLF file",
			content: ".encoding = \"windows-1252\"\r\ndisplayName = \"demo\"\r\n",
		},
		{
			name:    "BOM prefixed file",
			content: "\xEF\xBB\xBF.encoding = \"UTF-8\"\ndisplayName = \"demo\"\n",
		},
		{
			name:    "no trailing newline",
			content: "displayName = \"demo\"",
		},
		{
			name:    "comments and blanks",
			content: "# header comment\n\ndisplayName = \"demo\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeDescriptor(t, tt.content)

			d, err := Load(path)
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			if err := d.Save(); err != nil {
				t.Fatalf("Save() unexpected error: %v", err)
			}

			if got := readBack(t, path); got != tt.content {
				t.Errorf("round-trip changed content:\ngot:  %q\nwant: %q", got, tt.content)
			}
		})
	}
}

func TestRemoveByPrefix(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		prefixes    []string
		wantRemoved int
		wantKept    []string
	}{
		{
			name:        "removes whole device group",
			content:     "sata0:0.present = \"TRUE\"\nsata0:0.fileName = \"old.iso\"\ndisplayName = \"demo\"\n",
			prefixes:    []string{"sata0:0"},
			wantRemoved: 2,
			wantKept:    []string{"displayName = \"demo\"\n"},
		},
		{
			name:        "sata0:0 prefix does not match sata0:1",
			content:     "sata0:1.present = \"TRUE\"\n",
			prefixes:    []string{"sata0:0"},
			wantRemoved: 0,
			wantKept:    []string{"sata0:1.present = \"TRUE\"\n"},
		},
		{
			name:        "stem prefix covers numbered devices",
			content:     "floppy0.present = \"FALSE\"\nfloppy0.fileType = \"device\"\n",
			prefixes:    []string{"floppy"},
			wantRemoved: 2,
			wantKept:    nil,
		},
		{
			name:        "comments and blanks always survive",
			content:     "# bios settings below\n\nbios.bootOrder = \"hdd\"\n",
			prefixes:    []string{"bios"},
			wantRemoved: 1,
			wantKept:    []string{"# bios settings below\n", "\n"},
		},
		{
			name:        "non key-value lines survive",
			content:     "this line has no equals sign\nbios.bootOrder = \"hdd\"\n",
			prefixes:    []string{"bios"},
			wantRemoved: 1,
			wantKept:    []string{"this line has no equals sign\n"},
		},
		{
			name:        "dotted key without prefix segment survives",
			content:     ".encoding = \"UTF-8\"\n",
			prefixes:    []string{"bios", "guestinfo"},
			wantRemoved: 0,
			wantKept:    []string{".encoding = \"UTF-8\"\n"},
		},
		{
			name:        "indented setting still matches",
			content:     "  guestinfo.userdata = \"...\"\n",
			prefixes:    []string{"guestinfo"},
			wantRemoved: 1,
			wantKept:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeDescriptor(t, tt.content)
			d, err := Load(path)
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}

			removed := d.RemoveByPrefix(tt.prefixes)
			if removed != tt.wantRemoved {
				t.Errorf("RemoveByPrefix() removed %d lines, want %d", removed, tt.wantRemoved)
			}

			lines := d.Lines()
			if len(lines) != len(tt.wantKept) {
				t.Fatalf("kept %d lines %q, want %d", len(lines), lines, len(tt.wantKept))
			}
			for i, want := range tt.wantKept {
				if lines[i] != want {
					t.Errorf("kept line %d = %q, want %q", i, lines[i], want)
				}
			}
		})
	}
}

func TestKeyPrefix(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"sata0:0.fileName = \"x.iso\"\n", "sata0:0"},
		{"bios.bootOrder = \"cdrom\"\r\n", "bios"},
		{"displayName = \"demo\"\n", "displayName"},
		{"# comment\n", ""},
		{"\n", ""},
		{"no equals here\n", ""},
		{".encoding = \"UTF-8\"\n", ""},
		{"  virtualHW.version = \"21\"\n", "virtualHW"},
		{"= \"value without key\"\n", ""},
	}

	for _, tt := range tests {
		if got := keyPrefix(tt.line); got != tt.want {
			t.Errorf("keyPrefix(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestAppendSettingQuotesValues(t *testing.T) {
	path := writeDescriptor(t, "displayName = \"demo\"\n")
	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	d.AppendSetting("bios.bootOrder", "cdrom")

	lines := d.Lines()
	if got, want := lines[len(lines)-1], "bios.bootOrder = \"cdrom\"\n"; got != want {
		t.Errorf("appended line = %q, want %q", got, want)
	}
}

func TestAppendSettingMatchesCRLF(t *testing.T) {
	path := writeDescriptor(t, "displayName = \"demo\"\r\n")
	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	d.AppendSetting("bios.bootOrder", "cdrom")

	lines := d.Lines()
	if got, want := lines[len(lines)-1], "bios.bootOrder = \"cdrom\"\r\n"; got != want {
		t.Errorf("appended line = %q, want %q", got, want)
	}
}

func TestAppendAfterUnterminatedLine(t *testing.T) {
	path := writeDescriptor(t, "displayName = \"demo\"")
	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	d.AppendSetting("bios.bootOrder", "cdrom")

	lines := d.Lines()
	if len(lines) != 2 {
		t.Fatalf("got %d lines %q, want 2", len(lines), lines)
	}
	if lines[0] != "displayName = \"demo\"\n" {
		t.Errorf("first line = %q, want terminated original", lines[0])
	}
}

func TestAppendBlankDoesNotStack(t *testing.T) {
	path := writeDescriptor(t, "displayName = \"demo\"\n")
	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	d.AppendBlank()
	d.AppendBlank()

	lines := d.Lines()
	if len(lines) != 2 {
		t.Errorf("got %d lines %q, want 2 (one content, one blank)", len(lines), lines)
	}
}

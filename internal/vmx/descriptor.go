// Package vmx edits VMware Workstation VMX descriptor files.
//
// A descriptor is line-oriented "key = value" text with no formal grammar
// guarantee beyond that, so this package never parses it structurally: lines
// it does not intentionally remove round-trip byte-for-byte, including the
// original line endings and a UTF-8 byte-order marker if present. That keeps
// settings the tool does not understand intact.
package vmx

import (
	"bytes"
	"fmt"
	"os"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Descriptor is the in-memory form of one VMX file: an ordered sequence of
// raw lines (terminators included) plus whether the file carried a BOM.
// The whole file is read on Load and fully replaced on Save; no partial
// writes are ever visible.
type Descriptor struct {
	path  string
	bom   bool
	lines []string
}

// Load reads the descriptor at path into memory.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor %s: %w", path, err)
	}

	d := &Descriptor{path: path}
	if bytes.HasPrefix(data, utf8BOM) {
		d.bom = true
		data = data[len(utf8BOM):]
	}
	d.lines = splitLines(string(data))

	return d, nil
}

// Save writes the descriptor back to its file, replacing the content in one
// write and restoring the BOM if the original had one.
func (d *Descriptor) Save() error {
	var b strings.Builder
	if d.bom {
		b.Write(utf8BOM)
	}
	for _, line := range d.lines {
		b.WriteString(line)
	}

	if err := os.WriteFile(d.path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write descriptor %s: %w", d.path, err)
	}
	return nil
}

// Lines returns the current raw lines, terminators included.
func (d *Descriptor) Lines() []string {
	return d.lines
}

// RemoveByPrefix drops every setting line whose key's first dot-segment
// begins with one of the given prefixes. Comment lines, blank lines, and
// lines that do not parse as "key = value" always survive. Returns how many
// lines were removed.
func (d *Descriptor) RemoveByPrefix(prefixes []string) int {
	kept := d.lines[:0]
	removed := 0
	for _, line := range d.lines {
		if matchesPrefix(keyPrefix(line), prefixes) {
			removed++
			continue
		}
		kept = append(kept, line)
	}
	d.lines = kept
	return removed
}

// AppendSetting appends one `key = "value"` line. The value is always
// double-quoted.
func (d *Descriptor) AppendSetting(key, value string) {
	d.terminateLastLine()
	d.lines = append(d.lines, fmt.Sprintf("%s = %q%s", key, value, d.lineEnding()))
}

// AppendBlank appends an empty separator line unless the descriptor already
// ends with one, so repeated edits do not pile up blanks.
func (d *Descriptor) AppendBlank() {
	if len(d.lines) > 0 {
		last := strings.TrimRight(d.lines[len(d.lines)-1], "\r\n")
		if last == "" {
			return
		}
	}
	d.terminateLastLine()
	d.lines = append(d.lines, d.lineEnding())
}

// terminateLastLine gives the final line a terminator when it lacks one, so
// an appended line cannot glue onto it.
func (d *Descriptor) terminateLastLine() {
	if len(d.lines) == 0 {
		return
	}
	last := d.lines[len(d.lines)-1]
	if !strings.HasSuffix(last, "\n") {
		d.lines[len(d.lines)-1] = last + d.lineEnding()
	}
}

// lineEnding reports the descriptor's dominant line ending, defaulting to
// "\n" for empty files. VMX files written by Workstation on Windows use
// CRLF; appended lines follow suit.
func (d *Descriptor) lineEnding() string {
	for _, line := range d.lines {
		if strings.HasSuffix(line, "\r\n") {
			return "\r\n"
		}
		if strings.HasSuffix(line, "\n") {
			return "\n"
		}
	}
	return "\n"
}

// keyPrefix returns the first dot-segment of a setting line's key, or ""
// for comments, blanks, and lines that do not look like "key = value".
func keyPrefix(raw string) string {
	s := strings.TrimSpace(strings.TrimRight(raw, "\r\n"))
	if s == "" || strings.HasPrefix(s, "#") {
		return ""
	}

	eq := strings.Index(s, "=")
	if eq < 0 {
		return ""
	}

	key := strings.TrimSpace(s[:eq])
	if key == "" {
		return ""
	}
	if dot := strings.Index(key, "."); dot >= 0 {
		key = key[:dot]
	}
	return key
}

// matchesPrefix reports whether a key prefix falls under any removal prefix.
// A removal prefix matches the exact segment and stems of it, so "floppy"
// covers floppy0.* and "scsi0" covers scsi0:0.*.
func matchesPrefix(segment string, prefixes []string) bool {
	if segment == "" {
		return false
	}
	for _, p := range prefixes {
		if strings.HasPrefix(segment, p) {
			return true
		}
	}
	return false
}

// splitLines cuts text into lines, each keeping its terminator. A trailing
// fragment without a newline is kept as-is.
func splitLines(text string) []string {
	var lines []string
	for len(text) > 0 {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			lines = append(lines, text)
			break
		}
		lines = append(lines, text[:i+1])
		text = text[i+1:]
	}
	return lines
}

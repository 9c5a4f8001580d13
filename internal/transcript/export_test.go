package transcript

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Lines: []Line{
			{Index: 0, Text: "good morning", Final: true, Translation: "guten Morgen", CreatedAt: t0, UpdatedAt: t0},
			{Index: 1, Text: "", Final: true, CreatedAt: t0, UpdatedAt: t0},
			{Index: 2, Text: "see you", CreatedAt: t0, UpdatedAt: t0},
		},
		Buffer: "caption words",
	}
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, sampleSnapshot()); err != nil {
		t.Fatalf("WriteMarkdown failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"# Transcript", "good morning", "> guten Morgen", "see you", "## Captions", "caption words"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected markdown to contain %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "**") != 4 {
		t.Errorf("Expected empty lines to be skipped:\n%s", out)
	}
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteYAML(&buf, sampleSnapshot()); err != nil {
		t.Fatalf("WriteYAML failed: %v", err)
	}

	var decoded Snapshot
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Failed to decode YAML: %v", err)
	}
	if len(decoded.Lines) != 3 || decoded.Lines[0].Translation != "guten Morgen" {
		t.Errorf("Unexpected decoded snapshot %+v", decoded)
	}
}

func TestExportFile(t *testing.T) {
	dir := t.TempDir()

	md := filepath.Join(dir, "out.md")
	if err := ExportFile(md, sampleSnapshot()); err != nil {
		t.Fatalf("ExportFile md failed: %v", err)
	}
	if data, _ := os.ReadFile(md); !strings.HasPrefix(string(data), "# Transcript") {
		t.Errorf("Unexpected markdown file contents: %s", data)
	}

	if err := ExportFile(filepath.Join(dir, "out.yml"), sampleSnapshot()); err != nil {
		t.Fatalf("ExportFile yml failed: %v", err)
	}
	if err := ExportFile(filepath.Join(dir, "out.txt"), sampleSnapshot()); err == nil {
		t.Error("Expected unsupported extension error")
	}
}

package transcript

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// WriteMarkdown renders one paragraph per line, translations as block quotes,
// followed by the rolling buffer when it holds text.
func WriteMarkdown(w io.Writer, snap Snapshot) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# Transcript")
	for _, l := range snap.Lines {
		text := strings.TrimSpace(l.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(bw, "\n**%s** %s\n", l.CreatedAt.UTC().Format("15:04:05"), text)
		if l.Translation != "" {
			fmt.Fprintf(bw, "\n> %s\n", strings.TrimSpace(l.Translation))
		}
	}
	if snap.Buffer != "" {
		fmt.Fprintf(bw, "\n## Captions\n\n%s\n", snap.Buffer)
	}
	return bw.Flush()
}

// WriteYAML encodes the snapshot as a YAML document
func WriteYAML(w io.Writer, snap Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}
	return enc.Close()
}

// ExportFile writes the snapshot to path, picking the format from its extension.
func ExportFile(path string, snap Snapshot) error {
	var write func(io.Writer, Snapshot) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md":
		write = WriteMarkdown
	case ".yaml", ".yml":
		write = WriteYAML
	default:
		return fmt.Errorf("unsupported transcript format %q", filepath.Ext(path))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create transcript file: %w", err)
	}
	if err := write(f, snap); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

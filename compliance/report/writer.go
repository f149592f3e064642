package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Writer outputs a report to a destination in some format.
//
// The interface mirrors io-style byte accounting so callers can log how
// much was written, but it writes reports, not raw bytes.
type Writer interface {
	Write(r *Report) (int, error)
}

// MultiWriter writes a report to several Writers, stopping on the first
// error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer fanning out to all given Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
func (m *MultiWriter) Write(r *Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(r)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Artifact file names inside the output directory.
const (
	JSONFileName     = "compliance-report.json"
	MarkdownFileName = "compliance-summary.md"
)

// WriteFiles writes the machine-readable and human-readable artifacts into
// dir, creating it if absent. Write failures are fatal to the run and are
// not retried: an unwritable report directory means the run's evidence is
// lost, which the caller must surface, not paper over.
func WriteFiles(dir string, r *Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report: create output dir: %w", err)
	}

	if err := writeFile(filepath.Join(dir, JSONFileName), func(w io.Writer) Writer {
		return NewJSONWriter(w)
	}, r); err != nil {
		return err
	}

	return writeFile(filepath.Join(dir, MarkdownFileName), func(w io.Writer) Writer {
		return NewMarkdownWriter(w)
	}, r)
}

func writeFile(path string, mk func(io.Writer) Writer, r *Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	if _, err := mk(f).Write(r); err != nil {
		return fmt.Errorf("report: write %s: %w", filepath.Base(path), err)
	}
	return nil
}

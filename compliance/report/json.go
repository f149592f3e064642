package report

import (
	"encoding/json"
	"io"
)

// JSONWriter outputs the full structured report for machine consumption
// (CI artifact diffing, the run store).
type JSONWriter struct {
	output io.Writer
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer) *JSONWriter {
	return &JSONWriter{output: output}
}

// Write outputs the report as indented JSON.
func (w *JSONWriter) Write(r *Report) (int, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}

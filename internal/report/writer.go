package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Output file names within a run directory.
const (
	SummaryFileName  = "ssl_results.csv"
	CombinedFileName = "ssl_results.txt"
	ReportsDirName   = "ssl_reports"
)

// Writer is the per-run result sink: a summary CSV, a combined text stream
// with the full JSON per host, and one standalone JSON file per host. Every
// record is flushed to disk as soon as its host's session terminates, so a
// crash mid-run never corrupts records already written.
type Writer struct {
	dir        string
	reportsDir string

	csvFile *os.File
	csv     *csv.Writer
	txt     *os.File
}

// NewWriter creates the run directory layout and opens the sinks. Failure
// here is fatal to the run; per-host write errors later are not.
func NewWriter(dir string) (*Writer, error) {
	reportsDir := filepath.Join(dir, ReportsDirName)
	if err := os.MkdirAll(reportsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	csvFile, err := os.Create(filepath.Join(dir, SummaryFileName))
	if err != nil {
		return nil, fmt.Errorf("create summary csv: %w", err)
	}
	cw := csv.NewWriter(csvFile)
	if err := cw.Write(Columns); err != nil {
		csvFile.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	cw.Flush()

	txt, err := os.Create(filepath.Join(dir, CombinedFileName))
	if err != nil {
		csvFile.Close()
		return nil, fmt.Errorf("create combined results: %w", err)
	}

	return &Writer{
		dir:        dir,
		reportsDir: reportsDir,
		csvFile:    csvFile,
		csv:        cw,
		txt:        txt,
	}, nil
}

// Dir returns the run directory.
func (w *Writer) Dir() string { return w.dir }

// WriteResult appends one assessed host: summary row, combined stream section
// and standalone JSON file, all synced before returning.
func (w *Writer) WriteResult(host string, summary Summary, raw []byte) error {
	if err := w.writeRow(summary); err != nil {
		return err
	}

	pretty := indentJSON(raw)
	if _, err := fmt.Fprintf(w.txt, "\n--- %s ---\n%s\n", host, pretty); err != nil {
		return fmt.Errorf("append combined results: %w", err)
	}
	if err := w.txt.Sync(); err != nil {
		return fmt.Errorf("sync combined results: %w", err)
	}

	path := filepath.Join(w.reportsDir, host+".json")
	if err := os.WriteFile(path, append(pretty, '\n'), 0o644); err != nil {
		return fmt.Errorf("write per-host report: %w", err)
	}
	return nil
}

// WriteUnreachable appends the fixed no-HTTPS placeholder for host.
func (w *Writer) WriteUnreachable(host string) error {
	if err := w.writeRow(NoHTTPS(host)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w.txt, "\n--- %s ---\nHTTPS not found on this host.\n", host); err != nil {
		return fmt.Errorf("append combined results: %w", err)
	}
	return w.txt.Sync()
}

func (w *Writer) writeRow(summary Summary) error {
	if err := w.csv.Write(summary.Row()); err != nil {
		return fmt.Errorf("write summary row: %w", err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("flush summary row: %w", err)
	}
	return w.csvFile.Sync()
}

// Close flushes and closes the sinks.
func (w *Writer) Close() error {
	w.csv.Flush()
	csvErr := w.csv.Error()
	if err := w.csvFile.Close(); csvErr == nil {
		csvErr = err
	}
	if err := w.txt.Close(); csvErr == nil {
		csvErr = err
	}
	return csvErr
}

func indentJSON(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("{}")
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return raw
	}
	return buf.Bytes()
}

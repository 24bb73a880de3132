package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func readSummaryCSV(t *testing.T, dir string) [][]string {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, SummaryFileName))
	if err != nil {
		t.Fatalf("open summary csv: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read summary csv: %v", err)
	}
	return records
}

func TestWriterCreatesLayoutAndHeader(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	defer w.Close()

	if _, err := os.Stat(filepath.Join(dir, ReportsDirName)); err != nil {
		t.Errorf("reports dir not created: %v", err)
	}
	records := readSummaryCSV(t, dir)
	if len(records) != 1 || !reflect.DeepEqual(records[0], Columns) {
		t.Errorf("summary csv = %v, want header row only", records)
	}
}

func TestWriteResultAppendsAllSinks(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	defer w.Close()

	raw := []byte(`{"host":"b.example.com","status":"READY"}`)
	s := Summary{Host: "b.example.com", IP: "203.0.113.10", Grade: "A", Status: "READY"}
	if err := w.WriteResult("b.example.com", s, raw); err != nil {
		t.Fatalf("WriteResult() error = %v", err)
	}

	// Rows are durable without Close: read back while the writer is open.
	records := readSummaryCSV(t, dir)
	if len(records) != 2 {
		t.Fatalf("summary csv has %d rows, want header + 1", len(records))
	}
	if records[1][0] != "b.example.com" || records[1][2] != "A" {
		t.Errorf("summary row = %v", records[1])
	}

	combined, err := os.ReadFile(filepath.Join(dir, CombinedFileName))
	if err != nil {
		t.Fatalf("read combined: %v", err)
	}
	if !strings.Contains(string(combined), "--- b.example.com ---") {
		t.Errorf("combined stream missing host marker:\n%s", combined)
	}
	if !strings.Contains(string(combined), `"status": "READY"`) {
		t.Errorf("combined stream missing indented payload:\n%s", combined)
	}

	perHost, err := os.ReadFile(filepath.Join(dir, ReportsDirName, "b.example.com.json"))
	if err != nil {
		t.Fatalf("read per-host report: %v", err)
	}
	if !strings.Contains(string(perHost), `"host": "b.example.com"`) {
		t.Errorf("per-host report = %s", perHost)
	}
}

func TestWriteUnreachableRow(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	defer w.Close()

	if err := w.WriteUnreachable("a.example.com"); err != nil {
		t.Fatalf("WriteUnreachable() error = %v", err)
	}

	records := readSummaryCSV(t, dir)
	if len(records) != 2 {
		t.Fatalf("summary csv has %d rows, want header + 1", len(records))
	}
	row := records[1]
	if row[0] != "a.example.com" || row[2] != NoHTTPSGrade {
		t.Errorf("unreachable row = %v", row)
	}

	combined, err := os.ReadFile(filepath.Join(dir, CombinedFileName))
	if err != nil {
		t.Fatalf("read combined: %v", err)
	}
	if !strings.Contains(string(combined), "HTTPS not found on this host.") {
		t.Errorf("combined stream = %s", combined)
	}
}

func TestWriteResultsSurviveWithoutClose(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}

	for _, host := range []string{"a.example.com", "b.example.com", "c.example.com"} {
		s := Summary{Host: host, Status: "READY"}
		if err := w.WriteResult(host, s, []byte(`{"host":"`+host+`"}`)); err != nil {
			t.Fatalf("WriteResult(%s) error = %v", host, err)
		}
	}

	// Simulate a crash: never call Close. Everything must already be on disk.
	records := readSummaryCSV(t, dir)
	if len(records) != 4 {
		t.Errorf("summary csv has %d rows, want header + 3", len(records))
	}
}

package trace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sample = `{"kind":"admission","at":"2025-01-06T00:00:00Z","attrs":{"patient_id":3,"run_id":"r1"}}

{"kind":"prescription","at":"2025-01-06T00:00:00Z","attrs":{"prescription_id":1,"run_id":"r1"}}
{"kind":"tick","at":"2025-01-06T00:00:00Z"}
`

func TestRead_DecodesLinesAndSkipsBlanks(t *testing.T) {
	// GIVEN a trace with a blank line in the middle
	// WHEN read
	records, err := Read(strings.NewReader(sample))

	// THEN every non-blank line becomes a record
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Kind != "admission" || records[0].Int("patient_id") != 3 {
		t.Errorf("first record = %+v", records[0])
	}
	if !records[2].At.Equal(time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected timestamp %v", records[2].At)
	}
	if records[2].Attrs != nil {
		t.Errorf("expected no attrs on tick, got %v", records[2].Attrs)
	}
}

func TestRead_MalformedLineReportsLineNumber(t *testing.T) {
	_, err := Read(strings.NewReader("{\"kind\":\"tick\"}\n{not json\n"))
	if err == nil {
		t.Fatal("expected error for malformed line")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error %q does not name line 2", err)
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	records, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("expected 3 records, got %d", len(records))
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.jsonl")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRecord_AccessorsTolerateMissingAttrs(t *testing.T) {
	var r Record
	if r.String("outcome") != "" || r.Int("employee_id") != 0 {
		t.Error("expected zero values for missing attrs")
	}
}

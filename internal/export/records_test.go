package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/lavarand/internal/history"
	"github.com/san-kum/lavarand/internal/keygen"
)

func sampleRecords() []history.Record {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []history.Record{
		{ID: "b", Timestamp: ts.Add(time.Second), SeedPreview: "45f5345bac...", Key: "01234567-89ab-4def-8123-456789abcdef", Kind: keygen.UUID},
		{ID: "a", Timestamp: ts, SeedPreview: "e77ddc6dcb...", Key: "4444", Kind: keygen.Int},
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "JSON", "csv"} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("%s: %v", s, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, JSON, sampleRecords()); err != nil {
		t.Fatal(err)
	}

	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, buf.String())
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0]["kind"] != "UUID" || got[1]["key"] != "4444" {
		t.Errorf("unexpected records %v", got)
	}
	if got[0]["seed_preview"] != "45f5345bac..." {
		t.Errorf("seed preview missing: %v", got[0])
	}
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("expected empty array, got %q", buf.String())
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, CSV, sampleRecords()); err != nil {
		t.Fatal(err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != "id,timestamp,kind,key,seed_preview" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[2][2] != "INT" || rows[2][3] != "4444" {
		t.Errorf("unexpected row %v", rows[2])
	}
	if rows[1][1] != "2024-05-01T12:00:01Z" {
		t.Errorf("unexpected timestamp %s", rows[1][1])
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Table, sampleRecords()); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "TIME") || !strings.Contains(lines[1], "UUID") {
		t.Errorf("unexpected table:\n%s", buf.String())
	}

	buf.Reset()
	WriteTable(&buf, nil)
	if !strings.Contains(buf.String(), "no derivations") {
		t.Errorf("unexpected empty table %q", buf.String())
	}
}

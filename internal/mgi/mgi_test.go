package mgi

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// rpt builds a minimal tab-separated report body.
func rpt(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

// row formats one report line: group, organism, entrez (ignored), symbol.
func row(group, organism, symbol string) string {
	return group + "\t" + organism + "\t99999\t" + symbol + "\textra"
}

func TestParseReport(t *testing.T) {
	body := rpt(
		"# comment line",
		row("1", "mouse, laboratory", "Cd4"),
		row("1", "human", "CD4"),
		"short\tline",
		"",
		row("2", "HUMAN", "TP53"),
	)

	rows, err := ParseReport(strings.NewReader(body))
	if err != nil {
		t.Fatalf("ParseReport failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0].GroupID != "1" || rows[0].Organism != "mouse, laboratory" || rows[0].Symbol != "Cd4" {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
	if rows[2].Organism != "human" {
		t.Errorf("organism not lowercased: %q", rows[2].Organism)
	}
}

func TestBuildOneToOne(t *testing.T) {
	body := rpt(
		// clean one-to-one group
		row("1", "mouse, laboratory", "Cd4"),
		row("1", "human", "CD4"),
		// two human symbols in the group: ambiguous, dropped
		row("2", "mouse, laboratory", "Trp53"),
		row("2", "human", "TP53"),
		row("2", "human", "TP53B"),
		// two mouse symbols: ambiguous, dropped
		row("3", "mouse, laboratory", "Actb"),
		row("3", "mouse, laboratory", "Actb2"),
		row("3", "human", "ACTB"),
		// mouse only, no human partner: dropped
		row("4", "mouse, laboratory", "Xist"),
		// duplicated rows collapse to one pair
		row("5", "mouse, laboratory", "Gapdh"),
		row("5", "mouse, laboratory", "Gapdh"),
		row("5", "human", "GAPDH"),
		// other organisms are ignored
		row("6", "zebrafish", "gapdh"),
		row("6", "mouse, laboratory", "Epcam"),
		row("6", "human", "EPCAM"),
	)

	rows, err := ParseReport(strings.NewReader(body))
	if err != nil {
		t.Fatalf("ParseReport failed: %v", err)
	}

	m := BuildOneToOne(rows)

	if m.Len() != 3 {
		t.Fatalf("Len = %d, want 3 (pairs: %+v)", m.Len(), m.Pairs())
	}

	want := map[string]string{
		"Cd4":   "CD4",
		"Gapdh": "GAPDH",
		"Epcam": "EPCAM",
	}
	for mouse, human := range want {
		got, ok := m.Lookup(mouse)
		if !ok {
			t.Errorf("Lookup(%q) missing", mouse)
			continue
		}
		if got != human {
			t.Errorf("Lookup(%q) = %q, want %q", mouse, got, human)
		}
	}

	if _, ok := m.Lookup("Trp53"); ok {
		t.Error("ambiguous group should not map")
	}
	if _, ok := m.Lookup("Xist"); ok {
		t.Error("unpaired mouse symbol should not map")
	}

	// Pairs are sorted by mouse symbol.
	pairs := m.Pairs()
	for i := 1; i < len(pairs); i++ {
		if pairs[i-1].Mouse > pairs[i].Mouse {
			t.Errorf("pairs not sorted: %q > %q", pairs[i-1].Mouse, pairs[i].Mouse)
		}
	}
}

func TestCSVRoundTrip(t *testing.T) {
	rows, err := ParseReport(strings.NewReader(rpt(
		row("1", "mouse, laboratory", "Cd4"),
		row("1", "human", "CD4"),
		row("2", "mouse, laboratory", "Epcam"),
		row("2", "human", "EPCAM"),
	)))
	if err != nil {
		t.Fatalf("ParseReport failed: %v", err)
	}
	m := BuildOneToOne(rows)

	var buf bytes.Buffer
	if err := m.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	if !strings.HasPrefix(buf.String(), "mouse_symbol,human_symbol\n") {
		t.Errorf("missing header: %q", buf.String())
	}

	loaded, err := ReadCSV(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if loaded.Len() != m.Len() {
		t.Errorf("round-trip Len = %d, want %d", loaded.Len(), m.Len())
	}
	if human, ok := loaded.Lookup("Cd4"); !ok || human != "CD4" {
		t.Errorf("round-trip Lookup(Cd4) = %q, %v", human, ok)
	}
}

func TestReadCSVRejectsBadHeader(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\nCd4,CD4\n"))
	if err == nil {
		t.Error("expected header error")
	}

	_, err = ReadCSV(strings.NewReader(""))
	if err == nil {
		t.Error("expected error for empty table")
	}
}

func TestSaveCSV(t *testing.T) {
	m := BuildOneToOne([]Row{
		{GroupID: "1", Organism: "mouse, laboratory", Symbol: "Cd4"},
		{GroupID: "1", Organism: "human", Symbol: "CD4"},
	})

	path := filepath.Join(t.TempDir(), "maps", "mm2hs.csv")
	if err := m.SaveCSV(path); err != nil {
		t.Fatalf("SaveCSV failed: %v", err)
	}

	loaded, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}
	if loaded.Len() != 1 {
		t.Errorf("Len = %d, want 1", loaded.Len())
	}
}

func TestLoadReportGzip(t *testing.T) {
	body := rpt(
		row("1", "mouse, laboratory", "Cd4"),
		row("1", "human", "CD4"),
	)

	path := filepath.Join(t.TempDir(), "HOM_MouseHumanSequence.rpt.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	gw := gzip.NewWriter(f)
	if _, err := gw.Write([]byte(body)); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	rows, err := LoadReport(path)
	if err != nil {
		t.Fatalf("LoadReport failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("got %d rows from gzip report, want 2", len(rows))
	}
}

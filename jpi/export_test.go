package jpi

import (
	"strings"
	"testing"
)

// TestWriteCSVPreservesLeadingSpaceFields locks in the byte-identical CSV
// fidelity spec §1 calls "the hard part": formatInteger's leading-space
// convention for non-negative scale-1 fields (" 245") must survive
// unquoted, the way a Python csv.writer-produced golden file would emit
// it, rather than being quoted by encoding/csv's stricter rule.
func TestWriteCSVPreservesLeadingSpaceFields(t *testing.T) {
	d := NewDecoder()
	if err := d.ParseFile(buildSingleRecordFile(t)); err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	table, err := d.DecodeFlight(1)
	if err != nil {
		t.Fatalf("DecodeFlight: %v", err)
	}

	var sb strings.Builder
	if err := WriteCSV(&sb, table); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	want := "" +
		"INDEX,DATE,TIME,E1,OAT,SPD,ALT,LAT,LNG,MARK\r\n" +
		"1,01/15/2025,09:30:00, 245, 243, 250, 260,N00.01.00,E000.02.00,[\r\n" +
		"Engine - Tach Start = 0.0,Tach End = 0.0,Tach Duration = 0.0\r\n"

	got := sb.String()
	if got != want {
		t.Fatalf("WriteCSV output mismatch\n got:  %q\n want: %q", got, want)
	}

	dataLine := strings.Split(got, "\r\n")[1]
	if strings.Contains(dataLine, `"`) {
		t.Errorf("data line contains quoting, want unquoted leading-space fields: %q", dataLine)
	}
}

package jpi

import "testing"

// buildSingleRecordFile assembles one complete .JPI file in memory: a
// metadata block describing one EDM900 flight with E1, OAT, SPD, ALT,
// LAT, LNG and MARK active, followed by that flight's prelude and exactly
// one binary record.
func buildSingleRecordFile(t *testing.T) []byte {
	t.Helper()
	meta := buildMetadata(1, 20)
	prelude := buildPrelude(1, 0x0101, 0x007C, 10)
	record := buildRecord(0,
		recordField{0, 0, 5},   // E1
		recordField{1, 0, 3},   // OAT
		recordField{3, 1, 10},  // SPD
		recordField{3, 2, 20},  // ALT
		recordField{3, 3, 100}, // LAT lo
		recordField{3, 4, 200}, // LNG lo
		recordField{3, 5, 2},   // MARK -> "["
	)
	data := append([]byte(meta), prelude...)
	data = append(data, record...)
	if len(data)%2 != 0 {
		t.Fatalf("fixture size %d is not even; $D record size is in 16-bit words", len(data))
	}
	return data
}

func TestOpenFlightHeaderOrder(t *testing.T) {
	d := NewDecoder()
	if err := d.ParseFile(buildSingleRecordFile(t)); err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	headers, err := d.OpenFlight(1)
	if err != nil {
		t.Fatalf("OpenFlight: %v", err)
	}
	want := []string{"DATE", "TIME", "E1", "OAT", "SPD", "ALT", "LAT", "LNG", "MARK"}
	if len(headers) != len(want) {
		t.Fatalf("headers = %v, want %v", headers, want)
	}
	for i, h := range want {
		if headers[i] != h {
			t.Errorf("header[%d] = %q, want %q", i, headers[i], h)
		}
	}
}

func TestReadRecordDecodesOneRowThenStops(t *testing.T) {
	d := NewDecoder()
	if err := d.ParseFile(buildSingleRecordFile(t)); err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if _, err := d.OpenFlight(1); err != nil {
		t.Fatalf("OpenFlight: %v", err)
	}

	row, ok := d.ReadRecord()
	if !ok {
		t.Fatal("ReadRecord returned ok=false on the first record")
	}
	want := "01/15/2025,09:30:00, 245, 243, 250, 260,N00.01.00,E000.02.00,["
	if row != want {
		t.Errorf("row = %q, want %q", row, want)
	}

	if _, ok := d.ReadRecord(); ok {
		t.Error("ReadRecord returned ok=true past the flight's end offset")
	}
}

func TestDecodeFlightIsIdempotent(t *testing.T) {
	d := NewDecoder()
	if err := d.ParseFile(buildSingleRecordFile(t)); err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	first, err := d.DecodeFlight(1)
	if err != nil {
		t.Fatalf("DecodeFlight: %v", err)
	}
	second, err := d.DecodeFlight(1)
	if err != nil {
		t.Fatalf("DecodeFlight (cached): %v", err)
	}
	if len(first.Rows) != 1 || len(second.Rows) != 1 {
		t.Fatalf("expected 1 row each, got %d and %d", len(first.Rows), len(second.Rows))
	}
	for i := range first.Rows[0] {
		if first.Rows[0][i] != second.Rows[0][i] {
			t.Errorf("cached decode diverged at column %d: %q vs %q", i, first.Rows[0][i], second.Rows[0][i])
		}
	}
}

func TestListFlightsResolvesPrelude(t *testing.T) {
	d := NewDecoder()
	if err := d.ParseFile(buildSingleRecordFile(t)); err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	listings, err := d.ListFlights()
	if err != nil {
		t.Fatalf("ListFlights: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("got %d listings, want 1", len(listings))
	}
	l := listings[0]
	if l.ID != 1 || l.Date != "01/15/2025" || l.Time != "09:30:00" || l.Interval != 10 {
		t.Errorf("unexpected listing: %+v", l)
	}
}

func TestCloneSharesImmutableStateOnly(t *testing.T) {
	d := NewDecoder()
	if err := d.ParseFile(buildSingleRecordFile(t)); err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if _, err := d.OpenFlight(1); err != nil {
		t.Fatalf("OpenFlight: %v", err)
	}

	clone := d.Clone()
	if clone.cur != nil || clone.states != nil || clone.active != nil {
		t.Fatal("Clone carried over mutable per-flight state")
	}
	table, err := clone.DecodeFlight(1)
	if err != nil {
		t.Fatalf("clone DecodeFlight: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("clone decoded %d rows, want 1", len(table.Rows))
	}
}

func TestSummarizeFlightsWithoutHRSLeavesTachZero(t *testing.T) {
	d := NewDecoder()
	if err := d.ParseFile(buildSingleRecordFile(t)); err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	summaries, err := d.SummarizeFlights()
	if err != nil {
		t.Fatalf("SummarizeFlights: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(summaries))
	}
	s := summaries[0]
	if s.Samples != 1 {
		t.Errorf("Samples = %d, want 1", s.Samples)
	}
	if s.TachStart != 0 || s.TachEnd != 0 {
		t.Errorf("expected zero tach bounds without an active HRS channel, got start=%v end=%v", s.TachStart, s.TachEnd)
	}
	if s.StartLat != "N00.01.00" || s.StartLng != "E000.02.00" {
		t.Errorf("unexpected position: lat=%q lng=%q", s.StartLat, s.StartLng)
	}
}

func TestOpenFlightUnknownIDReturnsFlightNotFoundError(t *testing.T) {
	d := NewDecoder()
	if err := d.ParseFile(buildSingleRecordFile(t)); err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if _, err := d.OpenFlight(99); err == nil {
		t.Fatal("expected an error for an unknown flight id")
	} else if _, ok := err.(*FlightNotFoundError); !ok {
		t.Errorf("got error of type %T, want *FlightNotFoundError", err)
	}
}

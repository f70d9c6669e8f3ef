package jpi

import (
	"fmt"
	"math"

	"github.com/jpi-edm/decoder/internal/xlog"
)

// FlightPrelude is the fixed per-flight prelude parsed by component C. It
// exists only while a flight is open; openFlight resets it.
type FlightPrelude struct {
	ID               int
	CfgWord          [5]int
	StartLat         float64 // math.NaN() when unseeded
	StartLng         float64 // math.NaN() when unseeded
	FuelUnit         FuelUnit
	Horsepower       int // caller-facing metadata surface; not read by the decode path
	RecordInterval   int
	OriginalInterval int
	Date             string // MM/DD/YYYY
	Time             string // HH:MM:SS
	RecStart         int
}

// parsePrelude reads the fixed flight-header prelude described in §4.C,
// starting at entry.Start, and leaves cur positioned at the first data
// record (FlightPrelude.RecStart).
func parsePrelude(cur *Cursor, entry *FlightDirectoryEntry, profile *DeviceProfile) (*FlightPrelude, error) {
	cur.SetOffset(entry.Start)

	id := cur.Word()
	if id != entry.ID {
		xlog.Logf("flight %d: prelude id word %d does not match directory id", entry.ID, id)
	}

	p := &FlightPrelude{
		ID:       entry.ID,
		StartLat: math.NaN(),
		StartLng: math.NaN(),
	}
	p.CfgWord[0] = cur.Word()
	p.CfgWord[1] = cur.Word()

	if profile.EDMType {
		p.CfgWord[2] = cur.Word()
		p.CfgWord[3] = cur.Word()
		p.CfgWord[4] = cur.Word()

		if profile.Model == 900 && profile.Build >= 1000 && p.CfgWord[4]&0x78 != 0 {
			lat := cur.Long()
			lng := cur.Long()
			if !math.IsNaN(lat) {
				p.StartLat = lat
			}
			if !math.IsNaN(lng) {
				p.StartLng = lng
			}
		}
	}

	fuelUnit := cur.Byte()
	if fuelUnit >= 0 {
		p.FuelUnit = FuelUnit(fuelUnit)
	}
	p.Horsepower = cur.Byte()

	interval := cur.Word()
	p.RecordInterval = interval
	p.OriginalInterval = interval

	dateWord := cur.Word()
	p.Date = formatPackedDate(dateWord)

	timeWord := cur.Word()
	p.Time = formatPackedTime(timeWord)

	cur.Byte() // checksum byte, consumed but not verified (§7 policy)

	p.RecStart = cur.Offset()
	return p, nil
}

func formatPackedDate(v int) string {
	if v < 0 {
		return ""
	}
	day := extractBits(v, 0, 5)
	month := extractBits(v, 5, 4)
	yearOffset := extractBits(v, 9, 7)
	year := 2000 + yearOffset
	if yearOffset >= 75 {
		year = 1900 + yearOffset
	}
	return fmt.Sprintf("%02d/%02d/%04d", month, day, year)
}

func formatPackedTime(v int) string {
	if v < 0 {
		return ""
	}
	secTicks := extractBits(v, 0, 5)
	minutes := extractBits(v, 5, 6)
	hours := extractBits(v, 11, 5)
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secTicks*2)
}

package jpi

import (
	"fmt"
	"math"
)

// channelState is component F's per-sensor accumulator: one instance per
// active SensorDescriptor, reset whenever a flight is opened and carried
// across every record decoded from it.
type channelState struct {
	runningTotal  float64
	resolvedScale int // KindFuel only: 10 (gallons) or 1 (pounds), fixed at openFlight
	seenAny       bool
}

// newChannelStates seeds one channelState per active sensor. The default
// running total is 240 for every channel except HP (0); LAT and LNG start
// from the flight prelude's seed when it is finite, and from 0 otherwise.
func newChannelStates(active []SensorDescriptor, prelude *FlightPrelude) map[string]*channelState {
	states := make(map[string]*channelState, len(active))
	for _, s := range active {
		cs := &channelState{runningTotal: 240}
		switch s.Name {
		case "HP":
			cs.runningTotal = 0
		case "LAT":
			if !math.IsNaN(prelude.StartLat) {
				cs.runningTotal = prelude.StartLat
			} else {
				cs.runningTotal = 0
			}
		case "LNG":
			if !math.IsNaN(prelude.StartLng) {
				cs.runningTotal = prelude.StartLng
			} else {
				cs.runningTotal = 0
			}
		}
		if s.Kind == KindFuel {
			cs.resolvedScale = 10
			if prelude.FuelUnit != FuelGallon {
				cs.resolvedScale = 1
			}
		}
		states[s.Name] = cs
	}
	return states
}

var egtNames = []string{"E1", "E2", "E3", "E4"}

// shapeRecord runs every active sensor's component F logic over one
// decoded record's cells, mutating channel state (running totals) and the
// flight's recordInterval (MARK's side effect) in place. It returns the
// formatted value for each sensor, keyed by header. Repeat rows are
// synthesized by the caller without calling shapeRecord.
func shapeRecord(active []SensorDescriptor, states map[string]*channelState, cells map[cellKey]rawCell, prelude *FlightPrelude, isFirstRecord bool) map[string]string {
	values := make(map[string]string, len(active))
	egtObserved := make(map[string]int, len(egtNames))

	for _, s := range active {
		cs := states[s.Name]
		switch s.Kind {
		case KindDIF:
			values[s.Header] = formatDIF(egtObserved)
			continue
		case KindMark:
			lo := cells[cellKey{Group: s.LoByte, Bit: s.LoBit}]
			mag := lo.Magnitude
			if lo.Sign {
				mag = -mag
			}
			values[s.Header] = formatMark(mag, prelude)
			continue
		}

		lo, loOK := cells[cellKey{Group: s.LoByte, Bit: s.LoBit}]
		var hi rawCell
		hiOK := false
		if s.hasHi() {
			hi, hiOK = cells[cellKey{Group: s.HiByte, Bit: s.HiBit}]
		}
		loValid := loOK && lo.Valid
		hiValid := s.hasHi() && hiOK && hi.Valid

		if !loValid && !hiValid {
			values[s.Header] = "NA"
			continue
		}

		intVal := lo.Magnitude
		if lo.Sign {
			intVal = -intVal
		}
		if s.hasHi() {
			if s.Name == "HRS" && isFirstRecord && lo.Sign {
				intVal = -(lo.Magnitude + hi.Magnitude)
			} else if hi.Sign {
				intVal -= hi.Magnitude
			} else {
				intVal += hi.Magnitude
			}
		}

		cs.runningTotal += float64(intVal)
		cs.seenAny = true
		rounded := int(math.Round(cs.runningTotal))

		switch s.Kind {
		case KindLat:
			values[s.Header] = formatCoordinate(rounded, false)
		case KindLng:
			values[s.Header] = formatCoordinate(rounded, true)
		case KindFixed1:
			values[s.Header] = formatFixed1(rounded)
		case KindFuel:
			if cs.resolvedScale == 10 {
				values[s.Header] = formatFixed1(rounded)
			} else {
				values[s.Header] = formatInteger(rounded)
			}
		default:
			values[s.Header] = formatInteger(rounded)
		}

		if isEGTName(s.Name) && loValid {
			egtObserved[s.Name] = rounded
		}
	}

	return values
}

func isEGTName(name string) bool {
	for _, n := range egtNames {
		if n == name {
			return true
		}
	}
	return false
}

// formatDIF computes the per-record spread over EGT values whose low byte
// was valid in the current record only — never carried from prior
// records. Twin profiles will need an analogous LDIF over left-bank EGTs
// computed the same way.
func formatDIF(egtObserved map[string]int) string {
	if len(egtObserved) == 0 {
		return "NA"
	}
	var lo, hi int
	first := true
	for _, n := range egtNames {
		v, ok := egtObserved[n]
		if !ok {
			continue
		}
		if first {
			lo, hi = v, v
			first = false
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return formatInteger(hi - lo)
}

func formatMark(delta int, prelude *FlightPrelude) string {
	switch delta & 7 {
	case 1:
		return "X"
	case 2:
		prelude.RecordInterval = 1
		return "["
	case 3:
		prelude.RecordInterval = prelude.OriginalInterval
		return "]"
	case 4:
		prelude.RecordInterval = 1
		return "<"
	case 5:
		prelude.RecordInterval = prelude.OriginalInterval
		return ">"
	default:
		return ""
	}
}

func formatInteger(v int) string {
	if v >= 0 {
		return fmt.Sprintf(" %d", v)
	}
	return fmt.Sprintf("%d", v)
}

func formatFixed1(v int) string {
	return fmt.Sprintf("%.1f", float64(v)/10.0)
}

// formatCoordinate implements §4.F's LAT/LNG textual format: a
// hemisphere letter, a degrees field (two digits for latitude, three for
// longitude), and minutes.hundredths split out of the remainder.
func formatCoordinate(total int, isLng bool) string {
	neg := total < 0
	t := total
	if neg {
		t = -t
	}
	deg := t / 6000
	r := t - deg*6000
	whole := r / 100
	frac := r % 100
	if isLng {
		hemi := "E"
		if neg {
			hemi = "W"
		}
		return fmt.Sprintf("%s%03d.%02d.%02d", hemi, deg, whole, frac)
	}
	hemi := "N"
	if neg {
		hemi = "S"
	}
	return fmt.Sprintf("%s%02d.%02d.%02d", hemi, deg, whole, frac)
}

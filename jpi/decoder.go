package jpi

import "github.com/jpi-edm/decoder/internal/xlog"

// rawCell is one (byte-group, bit) slot decoded from a single binary
// record, before component F turns it into a channel value. Magnitude is
// the raw byte already multiplied by its group/bit scale; Sign is the
// corresponding sign-byte bit; Valid is whether the raw byte was nonzero.
type rawCell struct {
	Magnitude int
	Sign      bool
	Valid     bool
}

type cellKey struct {
	Group int
	Bit   int
}

// scaleAndSignMask implements §4.E's scale-selection table: most
// (group, bit) pairs decode at scale 1 with a sign mask equal to the data
// bit itself, but a handful of groups pack a coarser scale (the EDM wire
// format reuses spare bits in neighbouring bytes for the high-resolution
// channels addressed by SensorDescriptor.HiByte/HiBit).
func scaleAndSignMask(group, bit int) (scale int, mask int) {
	base := 1 << uint(bit)
	switch {
	case group == 5 && (bit == 2 || bit == 4):
		return 256, base / 2
	case group == 6 || group == 7:
		return 256, base
	case group == 10 && (bit == 1 || bit == 2):
		return 256, base * 32
	case (group == 9 || group == 12) && (bit == 4 || bit == 5):
		return 256, base / 16
	case (group == 9 || group == 12) && bit == 7:
		return 256, base
	case (group == 13 || group == 14) && (bit == 4 || bit == 5 || bit == 6):
		return 256, base / 16
	default:
		return 1, base
	}
}

// signSourceGroup resolves which group's sign byte governs a data bit:
// groups 6 and 7 never carry their own sign byte (decodeOneRecord skips
// reading one for them), so they borrow group 0's and group 3's
// respectively, tested at the same bit mask the borrowing bit would use.
func signSourceGroup(group int) int {
	switch group {
	case 6:
		return 0
	case 7:
		return 3
	default:
		return group
	}
}

func readFlagWord(cur *Cursor, edmType bool) int {
	if edmType {
		return cur.Word()
	}
	return cur.Byte()
}

// decodeOneRecord reads one binary data record: the flag words, the
// repeat-count byte, one control byte per active byte-group, one sign
// byte per active byte-group (except 6 and 7), the data bytes those
// control bytes select, and a trailing checksum (verified per profile,
// logged on mismatch, never an error — §7's lenient policy).
//
// mult is the repeat count read from the record: the caller is
// responsible for emitting that many copies of the previous row before
// emitting the row decoded from cells. ok is false at end of stream or on
// truncation.
func decodeOneRecord(cur *Cursor, profile *DeviceProfile) (mult int, cells map[cellKey]rawCell, ok bool) {
	recordStart := cur.Offset()

	flg0 := readFlagWord(cur, profile.EDMType)
	flg1 := readFlagWord(cur, profile.EDMType)
	if flg0 < 0 || flg1 < 0 || flg0 != flg1 {
		return 0, nil, false
	}

	mult = cur.Byte()
	if mult < 0 {
		return 0, nil, false
	}

	var control [16]int
	for g := 0; g < 16; g++ {
		control[g] = -1
		if flg0&(1<<uint(g)) != 0 {
			control[g] = cur.Byte()
		}
	}

	var sign [16]int
	for g := 0; g < 16; g++ {
		sign[g] = -1
		if g == 6 || g == 7 {
			continue
		}
		if flg0&(1<<uint(g)) != 0 {
			sign[g] = cur.Byte()
		}
	}

	cells = make(map[cellKey]rawCell)
	for g := 0; g < 16; g++ {
		if control[g] < 0 {
			continue
		}
		for b := 0; b < 8; b++ {
			if control[g]&(1<<uint(b)) == 0 {
				continue
			}
			v := cur.Byte()
			if v < 0 {
				return 0, nil, false
			}
			scale, mask := scaleAndSignMask(g, b)
			signByte := sign[signSourceGroup(g)]
			cells[cellKey{Group: g, Bit: b}] = rawCell{
				Magnitude: v * scale,
				Sign:      signByte >= 0 && signByte&mask != 0,
				Valid:     v != 0,
			}
		}
	}

	checksumOffset := cur.Offset()
	checksum := cur.Byte()
	if checksum < 0 {
		return 0, nil, false
	}
	verifyRecordChecksum(cur, profile, recordStart, checksumOffset, byte(checksum))

	return mult, cells, true
}

func verifyRecordChecksum(cur *Cursor, profile *DeviceProfile, start, end int, want byte) {
	data := cur.Slice(start, end)
	var got byte
	switch profile.ChecksumProtocol {
	case ChecksumSumMod256:
		for _, b := range data {
			got += b
		}
	default:
		for _, b := range data {
			got ^= b
		}
	}
	if got != want {
		xlog.Logf("binary record checksum mismatch at offset %d: want %02X got %02X", start, want, got)
	}
}

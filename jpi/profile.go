package jpi

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/jpi-edm/decoder/internal/xlog"
)

// FuelUnit mirrors the $F metadata record's unit enum.
type FuelUnit int

const (
	FuelGallon FuelUnit = 0
	FuelPound  FuelUnit = 1
)

// ChecksumProtocol selects how binary-record checksums (component E step 6)
// are computed; never enforced, only used for the lenient log-and-continue
// policy described in §7.
type ChecksumProtocol int

const (
	ChecksumXOR ChecksumProtocol = iota
	ChecksumSumMod256
)

// TempUnit is shared by the engine-temperature and OAT unit fields.
type TempUnit int

const (
	TempC TempUnit = iota
	TempF
)

// AlarmThresholds carries the $A metadata record's configured alarm
// thresholds as descriptive data. Nothing in the decode path reads this
// struct: no alarm/limit interpretation is part of this decoder, per
// spec.md's stated Non-goal. It exists purely so a caller building a
// session summary (or the CLI's --info output) can display the thresholds
// the pilot configured, the same way original_source/src/main.rs's
// EdmHeader::data() surfaces them without acting on them.
type AlarmThresholds struct {
	MaxVolts       float64
	MinVolts       float64
	MaxEGTSpread   int
	MaxCHT         int
	MaxCHTCoolRate int
	MaxEGT         int
	MaxOilTemp     int
	MinOilTemp     int
}

// FlightDirectoryEntry is one $D metadata record, resolved to an absolute
// byte offset by finalizeDirectory and the recovery probe in
// recoverFlightOffsets.
type FlightDirectoryEntry struct {
	ID    int
	Size  int // bytes; 2 * sizeWords from the $D record
	Start int // absolute byte offset of the flight block
	Found bool
}

// DeviceProfile is immutable once ScanMetadata returns. Several fields
// (CfgHigh, CfgLow, ProtocolID, EDM930, Beta, EngineTempUnit, OATUnit) are
// captured because §3 names them as part of the data model, but no
// decode-path code reads them back: they are caller-facing metadata
// surface (e.g. for a CLI --info summary), not decoder state.
type DeviceProfile struct {
	Model            int
	FirmwareVersion  int
	Build            int
	Beta             bool
	Twin             bool
	EDM930           bool
	EDMType          bool
	EngineTempUnit   TempUnit
	OATUnit          TempUnit
	FuelUnit         FuelUnit
	ChecksumProtocol ChecksumProtocol
	ProtocolID       int
	CfgHigh          int
	CfgLow           int
	UserName         string
	AlarmThresholds  *AlarmThresholds

	directory  []*FlightDirectoryEntry
	dataAnchor int
}

// Directory returns the flight directory in the order records were seen.
func (p *DeviceProfile) Directory() []*FlightDirectoryEntry {
	return p.directory
}

func (p *DeviceProfile) findFlight(id int) (*FlightDirectoryEntry, error) {
	for _, e := range p.directory {
		if e.ID == id {
			if !e.Found {
				return nil, &FlightNotFoundError{FlightID: id}
			}
			return e, nil
		}
	}
	return nil, &FlightNotFoundError{FlightID: id}
}

// ScanMetadata parses the leading ASCII `$`-record header block described
// in component B, populating a DeviceProfile and its flight directory.
func ScanMetadata(data []byte) (*DeviceProfile, error) {
	anchor := bytes.Index(data, []byte("$U"))
	if anchor < 0 {
		return nil, &MalformedMetadataError{Reason: "missing $U anchor"}
	}

	profile := &DeviceProfile{ChecksumProtocol: ChecksumXOR}
	pos := anchor
	for {
		record, next, ok := readMetaRecord(data, pos)
		if !ok {
			return nil, &MalformedMetadataError{Reason: "truncated record"}
		}
		if len(record) < 2 || record[0] != '$' {
			return nil, &MalformedMetadataError{Reason: "malformed record tag"}
		}
		verifyMetaChecksum(data, pos, record)

		tag := record[1]
		fields := splitMetaFields(record)
		stop := false
		switch tag {
		case 'A':
			profile.AlarmThresholds = parseAlarms(fields)
		case 'C':
			if err := applyDeviceRecord(profile, fields); err != nil {
				return nil, err
			}
		case 'D':
			if err := appendDirectoryEntry(profile, fields); err != nil {
				return nil, err
			}
		case 'F':
			if err := applyFuelUnit(profile, fields); err != nil {
				return nil, err
			}
		case 'H', 'I', 'T', 'W':
			// explicitly ignored by spec.md's dispatch table
		case 'P':
			applyProtocol(profile, fields)
		case 'U':
			profile.UserName = strings.Join(fields, ",")
		case 'L':
			finalizeDirectory(profile, next)
			stop = true
		case 'E':
			stop = true
		default:
			return nil, &MalformedMetadataError{
				Reason: fmt.Sprintf("unrecognized tag $%c before $E/$L", tag),
			}
		}
		if stop {
			break
		}
		pos = next
		if pos >= len(data) {
			return nil, &MalformedMetadataError{Reason: "metadata block ran past end of file without $L"}
		}
	}

	recoverFlightOffsets(data, profile)
	return profile, nil
}

// readMetaRecord reads from pos up to (not including) the next '*', and
// returns the offset to resume scanning at: the '*' itself plus the two
// ASCII-hex checksum digits plus the CRLF terminator that follows it.
func readMetaRecord(data []byte, pos int) (record string, next int, ok bool) {
	i := pos
	for i < len(data) && data[i] != '*' {
		i++
	}
	if i >= len(data) {
		return "", len(data), false
	}
	record = string(data[pos:i])
	next = i + 5
	if next > len(data) {
		next = len(data)
	}
	return record, next, true
}

// verifyMetaChecksum validates the XOR checksum original_source/src/main.rs
// computes over each header line, logging (never erroring) on mismatch —
// the same lenient policy spec.md specifies for binary-record checksums.
func verifyMetaChecksum(data []byte, pos int, record string) {
	star := pos + len(record)
	if star+2 >= len(data) {
		return
	}
	want, err := strconv.ParseUint(string(data[star+1:star+3]), 16, 8)
	if err != nil || len(record) < 2 {
		return
	}
	var got byte
	for i := 1; i < len(record); i++ {
		got ^= record[i]
	}
	if got != byte(want) {
		xlog.Logf("metadata checksum mismatch in record %q: want %02X got %02X", record, want, got)
	}
}

func splitMetaFields(record string) []string {
	if len(record) <= 2 {
		return nil
	}
	rest := strings.TrimPrefix(record[2:], ",")
	if rest == "" {
		return nil
	}
	parts := strings.Split(rest, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func applyDeviceRecord(p *DeviceProfile, fields []string) error {
	if len(fields) < 6 {
		return &MalformedMetadataError{Reason: "$C record has too few fields"}
	}
	model, err := strconv.Atoi(fields[0])
	if err != nil {
		return &MalformedMetadataError{Reason: "invalid model in $C record"}
	}
	p.Model = model
	if fw, err := strconv.Atoi(fields[1]); err == nil {
		p.FirmwareVersion = fw
	}
	if cfg, err := strconv.ParseUint(fields[2], 16, 8); err == nil {
		p.CfgHigh = int(cfg>>4) & 0xF
		p.CfgLow = int(cfg) & 0xF
	}
	if v3, err := strconv.Atoi(fields[3]); err == nil && v3&0x1000 != 0 {
		p.EngineTempUnit = TempF
	}
	p.Build, p.Beta = parseBuildBeta(fields[4])
	if v5, err := strconv.Atoi(fields[5]); err == nil && v5&0x2000 != 0 {
		p.OATUnit = TempF
	}
	p.Twin = model == 760 || model == 790 || model == 960
	p.EDM930 = model == 930
	p.EDMType = model >= 900
	return nil
}

// parseBuildBeta reads the combined build/beta field: a plain integer is a
// release build, a negative value or a trailing non-digit suffix (e.g.
// "1023B") marks a beta build.
func parseBuildBeta(field string) (build int, beta bool) {
	trimmed := strings.TrimSpace(field)
	digits := trimmed
	if trimmed != "" {
		last := trimmed[len(trimmed)-1]
		if last < '0' || last > '9' {
			beta = true
			digits = trimmed[:len(trimmed)-1]
		}
	}
	n, _ := strconv.Atoi(digits)
	if n < 0 {
		n = -n
		beta = true
	}
	return n, beta
}

func appendDirectoryEntry(p *DeviceProfile, fields []string) error {
	if len(fields) < 2 {
		return &MalformedMetadataError{Reason: "$D record has too few fields"}
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return &MalformedMetadataError{Reason: "invalid flight id in $D record"}
	}
	sizeWords, err := strconv.Atoi(fields[1])
	if err != nil {
		return &MalformedMetadataError{Reason: "invalid size in $D record"}
	}
	p.directory = append(p.directory, &FlightDirectoryEntry{
		ID:   id,
		Size: sizeWords * 2,
	})
	return nil
}

func applyFuelUnit(p *DeviceProfile, fields []string) error {
	if len(fields) < 1 {
		return &MalformedMetadataError{Reason: "$F record has no fields"}
	}
	unit, err := strconv.Atoi(fields[0])
	if err != nil {
		return &MalformedMetadataError{Reason: "invalid fuel unit in $F record"}
	}
	p.FuelUnit = FuelUnit(unit)
	return nil
}

func applyProtocol(p *DeviceProfile, fields []string) {
	p.EDMType = true
	if len(fields) == 0 {
		return
	}
	if id, err := strconv.Atoi(fields[0]); err == nil {
		p.ProtocolID = id
		if id == 2 {
			p.ChecksumProtocol = ChecksumSumMod256
		}
	}
}

func parseAlarms(fields []string) *AlarmThresholds {
	if len(fields) < 8 {
		return nil
	}
	get := func(i int) (float64, bool) {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
		return v, err == nil
	}
	a := &AlarmThresholds{}
	if v, ok := get(0); ok {
		a.MaxVolts = v / 10.0
	}
	if v, ok := get(1); ok {
		a.MinVolts = v / 10.0
	}
	if v, ok := get(2); ok {
		a.MaxEGTSpread = int(v)
	}
	if v, ok := get(3); ok {
		a.MaxCHT = int(v)
	}
	if v, ok := get(4); ok {
		a.MaxCHTCoolRate = int(v)
	}
	if v, ok := get(5); ok {
		a.MaxEGT = int(v)
	}
	if v, ok := get(6); ok {
		a.MaxOilTemp = int(v)
	}
	if v, ok := get(7); ok {
		a.MinOilTemp = int(v)
	}
	return a
}

// finalizeDirectory assigns each directory entry's Start by prefix-summing
// sizes from the binary data-block anchor left by the $L record.
func finalizeDirectory(p *DeviceProfile, dataStart int) {
	p.dataAnchor = dataStart
	offset := dataStart
	for _, entry := range p.directory {
		entry.Start = offset
		offset += entry.Size
	}
}

// recoverFlightOffsets tolerates the single-byte drift observed in
// captured files: once a drift is found it is cumulative, so every entry
// after the one that drifted inherits the same shift.
func recoverFlightOffsets(data []byte, p *DeviceProfile) {
	cur := NewCursor(data, 0)
	shift := 0
	for _, entry := range p.directory {
		start := entry.Start + shift
		if v, ok := cur.PeekWordAt(start); ok && v == entry.ID {
			entry.Start = start
			entry.Found = true
			continue
		}
		if v, ok := cur.PeekWordAt(start - 1); ok && v == entry.ID {
			shift--
			entry.Start = start - 1
			entry.Found = true
			xlog.Logf("flight %d offset recovered with a -1 byte shift", entry.ID)
			continue
		}
		entry.Start = start
		entry.Found = false
		xlog.Logf("flight %d offset could not be recovered", entry.ID)
	}
}

package jpi

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const dateTimeLayout = "01/02/2006 15:04:05"

// Decoder is the top-level, stateful handle described in §5: single-
// threaded, synchronous, not safe for concurrent use. Callers that need
// to decode several files at once construct one Decoder per file.
type Decoder struct {
	data    []byte
	profile *DeviceProfile
	table   *SensorTable
	cache   *flightCache

	cur            *Cursor
	entry          *FlightDirectoryEntry
	prelude        *FlightPrelude
	active         []SensorDescriptor
	states         map[string]*channelState
	headers        []string
	clock          time.Time
	firstRecord    bool
	pendingRepeats int
	queuedCells    map[cellKey]rawCell
	hasQueued      bool
	lastValues     map[string]string
}

// NewDecoder returns a Decoder with no file loaded yet.
func NewDecoder() *Decoder {
	return &Decoder{cache: newFlightCache()}
}

// Clone returns a new Decoder sharing this one's parsed file, device
// profile, sensor table, and decode cache, but none of its mutable
// per-flight state. §5 requires one Decoder per concurrent caller since
// the cursor and channel state are not safe for concurrent use; Clone is
// the cheap way to get one without re-scanning the metadata block.
func (d *Decoder) Clone() *Decoder {
	return &Decoder{
		data:    d.data,
		profile: d.profile,
		table:   d.table,
		cache:   d.cache,
	}
}

// SetSensorTable overrides the default embedded EDM900/930 mapping table,
// the extension point design note 9's open question 3 calls for.
func (d *Decoder) SetSensorTable(t *SensorTable) { d.table = t }

func (d *Decoder) sensorTable() *SensorTable {
	if d.table == nil {
		d.table = DefaultSensorTable()
	}
	return d.table
}

// ParseFile scans data's metadata block and populates the device profile
// and flight directory. It must be called before any other method.
func (d *Decoder) ParseFile(data []byte) error {
	profile, err := ScanMetadata(data)
	if err != nil {
		return err
	}
	d.data = data
	d.profile = profile
	return nil
}

// FlightListing is one row of ListFlights' result.
type FlightListing struct {
	ID       int
	Size     int
	Start    int
	Date     string
	Time     string
	Interval int
}

// ListFlights returns every flight the offset-recovery probe resolved,
// with its prelude's start date/time/interval already decoded.
func (d *Decoder) ListFlights() ([]FlightListing, error) {
	if d.profile == nil {
		return nil, ErrNoFile
	}
	var out []FlightListing
	for _, e := range d.profile.Directory() {
		if !e.Found {
			continue
		}
		cur := NewCursor(d.data, e.Start)
		cur.SetEnd(e.Start + e.Size)
		prelude, err := parsePrelude(cur, e, d.profile)
		if err != nil {
			continue
		}
		out = append(out, FlightListing{
			ID:       e.ID,
			Size:     e.Size,
			Start:    e.Start,
			Date:     prelude.Date,
			Time:     prelude.Time,
			Interval: prelude.OriginalInterval,
		})
	}
	return out, nil
}

// OpenFlight resets all per-flight state (prelude, running totals,
// cursor) and returns the output header row: DATE, TIME, then one token
// per active sensor in table order.
func (d *Decoder) OpenFlight(id int) ([]string, error) {
	if d.profile == nil {
		return nil, ErrNoFile
	}
	entry, err := d.profile.findFlight(id)
	if err != nil {
		return nil, err
	}

	cur := NewCursor(d.data, entry.Start)
	cur.SetEnd(entry.Start + entry.Size)
	prelude, err := parsePrelude(cur, entry, d.profile)
	if err != nil {
		return nil, err
	}

	active := d.sensorTable().activeSensors(prelude.CfgWord)
	states := newChannelStates(active, prelude)

	clock, err := time.Parse(dateTimeLayout, prelude.Date+" "+prelude.Time)
	if err != nil {
		clock = time.Time{}
	}

	headers := make([]string, 0, len(active)+2)
	headers = append(headers, "DATE", "TIME")
	for _, s := range active {
		headers = append(headers, s.Header)
	}

	d.entry = entry
	d.prelude = prelude
	d.active = active
	d.states = states
	d.cur = cur
	d.headers = headers
	d.clock = clock
	d.firstRecord = true
	d.pendingRepeats = 0
	d.hasQueued = false
	d.queuedCells = nil
	d.lastValues = map[string]string{}

	return headers, nil
}

// ReadRecord decodes and formats the next output row, per §6's
// record-at-a-time streaming interface. ok is false at end of stream.
func (d *Decoder) ReadRecord() (row string, ok bool) {
	values, _, ok := d.nextRow()
	if !ok {
		return "", false
	}
	return strings.Join(values, ","), true
}

// nextRow drains any queued repeat rows before decoding the next real
// record, implementing the "mult" repeat run described in §4.E step 2 and
// the glossary: a repeat emits the previous row's values again, advancing
// time but consuming no new data bytes.
func (d *Decoder) nextRow() (row []string, isRepeat bool, ok bool) {
	if d.cur == nil {
		return nil, false, false
	}
	if d.pendingRepeats > 0 {
		d.pendingRepeats--
		return d.buildRow(nil, true), true, true
	}
	if d.hasQueued {
		cells := d.queuedCells
		d.hasQueued = false
		d.queuedCells = nil
		return d.buildRow(cells, false), false, true
	}

	mult, cells, decoded := decodeOneRecord(d.cur, d.profile)
	if !decoded {
		return nil, false, false
	}
	if mult > 0 {
		d.queuedCells = cells
		d.hasQueued = true
		d.pendingRepeats = mult
		return d.nextRow()
	}
	return d.buildRow(cells, false), false, true
}

func (d *Decoder) buildRow(cells map[cellKey]rawCell, isRepeat bool) []string {
	var values map[string]string
	if isRepeat {
		values = make(map[string]string, len(d.lastValues))
		for k, v := range d.lastValues {
			values[k] = v
		}
		for _, name := range []string{"LAT", "LNG", "SPD", "ALT"} {
			if _, ok := values[name]; ok {
				values[name] = "NA"
			}
		}
	} else {
		values = shapeRecord(d.active, d.states, cells, d.prelude, d.firstRecord)
		d.firstRecord = false
	}

	row := make([]string, 0, len(d.headers))
	row = append(row, d.clock.Format("01/02/2006"), d.clock.Format("15:04:05"))
	for _, s := range d.active {
		row = append(row, values[s.Header])
	}

	d.lastValues = values
	d.clock = d.clock.Add(time.Duration(d.prelude.RecordInterval) * time.Second)
	return row
}

// FlightTable is decodeFlight's materialized result: headers plus rows
// with every component G post-pass already applied.
type FlightTable struct {
	Headers []string
	Rows    [][]string
}

// DecodeFlight opens, fully decodes, and composes one flight, memoizing
// the result so repeated calls (the CLI's multi-flight batch mode, or a
// caller checking idempotence) don't redo the work.
func (d *Decoder) DecodeFlight(id int) (*FlightTable, error) {
	if t, ok := d.cache.get(id); ok {
		return t, nil
	}

	headers, err := d.OpenFlight(id)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	var repeats []bool
	for {
		row, isRepeat, ok := d.nextRow()
		if !ok {
			break
		}
		rows = append(rows, row)
		repeats = append(repeats, isRepeat)
	}
	composeRows(headers, rows, repeats)

	table := &FlightTable{Headers: headers, Rows: rows}
	d.cache.set(id, table)
	return table, nil
}

// FlightSummary is one row of SummarizeFlights' result.
type FlightSummary struct {
	ID           int
	Date         string
	TimeOff      string
	TimeIn       string
	Samples      int
	TachStart    float64
	TachEnd      float64
	TachDuration float64
	HobbDuration float64
	StartLat     string
	StartLng     string
	EndLat       string
	EndLng       string
}

// SummarizeFlights decodes every resolvable flight and reduces each to
// its tach/hobb durations and start/end position, per §6.
func (d *Decoder) SummarizeFlights() ([]FlightSummary, error) {
	listings, err := d.ListFlights()
	if err != nil {
		return nil, err
	}
	out := make([]FlightSummary, 0, len(listings))
	for _, l := range listings {
		table, err := d.DecodeFlight(l.ID)
		if err != nil {
			continue
		}
		out = append(out, summarizeTable(l, table))
	}
	return out, nil
}

func summarizeTable(l FlightListing, t *FlightTable) FlightSummary {
	s := FlightSummary{ID: l.ID, Date: l.Date}
	if len(t.Rows) == 0 {
		return s
	}
	s.Samples = len(t.Rows)
	s.TimeOff = t.Rows[0][1]
	s.TimeIn = t.Rows[len(t.Rows)-1][1]

	if hrsCol := indexOfHeader(t.Headers, "HRS"); hrsCol >= 0 {
		if v, ok := firstNumeric(t.Rows, hrsCol, true); ok {
			s.TachStart = v
		}
		if v, ok := firstNumeric(t.Rows, hrsCol, false); ok {
			s.TachEnd = v
		}
		s.TachDuration = round1(s.TachEnd - s.TachStart)
	}
	if latCol := indexOfHeader(t.Headers, "LAT"); latCol >= 0 {
		if v, ok := firstNonNA(t.Rows, latCol, true); ok {
			s.StartLat = v
		}
		if v, ok := firstNonNA(t.Rows, latCol, false); ok {
			s.EndLat = v
		}
	}
	if lngCol := indexOfHeader(t.Headers, "LNG"); lngCol >= 0 {
		if v, ok := firstNonNA(t.Rows, lngCol, true); ok {
			s.StartLng = v
		}
		if v, ok := firstNonNA(t.Rows, lngCol, false); ok {
			s.EndLng = v
		}
	}

	start, errA := time.Parse(dateTimeLayout, t.Rows[0][0]+" "+t.Rows[0][1])
	end, errB := time.Parse(dateTimeLayout, t.Rows[len(t.Rows)-1][0]+" "+t.Rows[len(t.Rows)-1][1])
	if errA == nil && errB == nil {
		s.HobbDuration = round1(end.Sub(start).Hours())
	}
	return s
}

func firstNumeric(rows [][]string, col int, fromStart bool) (float64, bool) {
	n := len(rows)
	for i := 0; i < n; i++ {
		idx := i
		if !fromStart {
			idx = n - 1 - i
		}
		v := strings.TrimSpace(rows[idx][col])
		if isNAOrEmpty(v) {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		return f, true
	}
	return 0, false
}

func firstNonNA(rows [][]string, col int, fromStart bool) (string, bool) {
	n := len(rows)
	for i := 0; i < n; i++ {
		idx := i
		if !fromStart {
			idx = n - 1 - i
		}
		v := rows[idx][col]
		if isNAOrEmpty(v) {
			continue
		}
		return v, true
	}
	return "", false
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

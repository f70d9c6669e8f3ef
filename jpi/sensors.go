package jpi

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Kind tags how a SensorDescriptor's raw integer becomes a formatted
// value (design note 9: a tagged-variant model in place of scattered
// name-string comparisons).
type Kind int

const (
	KindInteger Kind = iota
	KindFixed1
	KindFuel // scale resolved at flight-open time from FlightPrelude.FuelUnit
	KindLat
	KindLng
	KindMark
	KindDIF
)

func parseKind(s string) (Kind, error) {
	switch s {
	case "integer":
		return KindInteger, nil
	case "fixed1":
		return KindFixed1, nil
	case "fuel":
		return KindFuel, nil
	case "lat":
		return KindLat, nil
	case "lng":
		return KindLng, nil
	case "mark":
		return KindMark, nil
	case "dif":
		return KindDIF, nil
	default:
		return 0, fmt.Errorf("jpi: unknown sensor kind %q", s)
	}
}

// SensorDescriptor is one row of component D's mapping table.
// LoByte/HiByte address one of the record decoder's 16 byte-groups
// (0..15); LoBit/HiBit address a bit within that group's control byte
// (0..7). -1 marks "no source byte" (DIF is computed, never read).
type SensorDescriptor struct {
	Name    string
	Header  string
	CfgByte int // byte index into the flattened cfgWord array (0..9)
	CfgBit  int // bit index within that byte (0..7)
	Kind    Kind
	Scale   int // 1 or 10 as given by the profile; formatting follows Kind, not this field
	LoByte  int
	LoBit   int
	HiByte  int
	HiBit   int
}

func (d SensorDescriptor) hasHi() bool { return d.HiByte >= 0 && d.HiBit >= 0 }
func (d SensorDescriptor) hasLo() bool { return d.LoByte >= 0 && d.LoBit >= 0 }

// SensorTable is the ordered, resolved channel list for one (model,
// firmware) profile. It is pure data: decoder.go and shaper.go never
// branch on model or firmware, only on what a SensorTable hands them.
type SensorTable struct {
	Name     string
	Model    int
	Firmware int
	Sensors  []SensorDescriptor
}

type rawSensor struct {
	Name    string `yaml:"name"`
	Header  string `yaml:"header"`
	CfgByte int    `yaml:"cfgByte"`
	CfgBit  int    `yaml:"cfgBit"`
	Kind    string `yaml:"kind"`
	Scale   int    `yaml:"scale"`
	LoByte  int    `yaml:"loByte"`
	LoBit   int    `yaml:"loBit"`
	HiByte  int    `yaml:"hiByte"`
	HiBit   int    `yaml:"hiBit"`
}

type rawProfile struct {
	Name     string      `yaml:"name"`
	Model    int         `yaml:"model"`
	Firmware int         `yaml:"firmware"`
	Sensors  []rawSensor `yaml:"sensors"`
}

//go:embed profiles/edm900_930_fw107.yaml
var defaultProfileYAML []byte

func loadProfile(data []byte) (*SensorTable, error) {
	var raw rawProfile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("jpi: decoding sensor profile: %w", err)
	}
	table := &SensorTable{Name: raw.Name, Model: raw.Model, Firmware: raw.Firmware}
	for _, rs := range raw.Sensors {
		kind, err := parseKind(rs.Kind)
		if err != nil {
			return nil, fmt.Errorf("jpi: sensor %q: %w", rs.Name, err)
		}
		scale := rs.Scale
		if scale == 0 {
			scale = 1
		}
		table.Sensors = append(table.Sensors, SensorDescriptor{
			Name:    rs.Name,
			Header:  rs.Header,
			CfgByte: rs.CfgByte,
			CfgBit:  rs.CfgBit,
			Kind:    kind,
			Scale:   scale,
			LoByte:  rs.LoByte,
			LoBit:   rs.LoBit,
			HiByte:  rs.HiByte,
			HiBit:   rs.HiBit,
		})
	}
	return table, nil
}

// DefaultSensorTable returns the embedded EDM900/930 firmware-107 profile.
func DefaultSensorTable() *SensorTable {
	t, err := loadProfile(defaultProfileYAML)
	if err != nil {
		panic("jpi: embedded default sensor profile is invalid: " + err.Error())
	}
	return t
}

// LoadSensorTableFile reads an alternative (model, firmware) profile from
// a YAML file in the same shape as profiles/edm900_930_fw107.yaml — the
// extension point for twins and other models that spec.md's PURPOSE &
// SCOPE calls out.
func LoadSensorTableFile(path string) (*SensorTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return loadProfile(data)
}

// cfgBitSet implements the component D presence rule: a channel appears
// iff cfgWord[cfgByte] & (1 << cfgBit) != 0, where cfgByte addresses a
// byte within the flattened cfgWord array (even index = high byte of
// cfgWord[byteIdx/2], odd index = low byte).
func cfgBitSet(cfgWord [5]int, byteIdx, bitIdx int) bool {
	if byteIdx < 0 || bitIdx < 0 {
		return false
	}
	wordIdx := byteIdx / 2
	if wordIdx >= len(cfgWord) {
		return false
	}
	word := cfgWord[wordIdx]
	var b int
	if byteIdx%2 == 0 {
		b = (word >> 8) & 0xFF
	} else {
		b = word & 0xFF
	}
	return b&(1<<uint(bitIdx)) != 0
}

// activeSensors returns the subset of t.Sensors enabled by cfgWord, in
// table (insertion) order — the column order the spec requires.
func (t *SensorTable) activeSensors(cfgWord [5]int) []SensorDescriptor {
	var out []SensorDescriptor
	for _, s := range t.Sensors {
		if cfgBitSet(cfgWord, s.CfgByte, s.CfgBit) {
			out = append(out, s)
		}
	}
	return out
}

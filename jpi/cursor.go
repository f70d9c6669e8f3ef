// Package jpi decodes J.P. Instruments Engine Data Monitor (.JPI) binary
// flight logs into tabular per-sample records.
package jpi

import "math"

// Cursor is a bounded, big-endian byte reader over a single in-memory
// buffer. It carries no hidden global state: every read advances an
// explicit offset on the value itself, so multiple flights (or multiple
// files) can be decoded concurrently by constructing one Cursor each.
type Cursor struct {
	data []byte
	pos  int
	end  int // per-flight end offset (§3's DecodeCursor); defaults to len(data)
}

// NewCursor returns a cursor over data starting at the given offset, with
// its end bound at the end of the buffer. Callers decoding a single
// flight's record stream narrow that bound with SetEnd so that reading
// past the flight's binary block yields end-of-stream rather than
// spilling into whatever follows it in the file.
func NewCursor(data []byte, start int) *Cursor {
	return &Cursor{data: data, pos: start, end: len(data)}
}

// SetEnd bounds subsequent Byte/Word/Long reads to [pos, off), clamped to
// the underlying buffer length.
func (c *Cursor) SetEnd(off int) {
	if off > len(c.data) {
		off = len(c.data)
	}
	c.end = off
}

// Offset returns the current read position.
func (c *Cursor) Offset() int { return c.pos }

// SetOffset repositions the cursor without bounds checking; callers that
// want clamped movement should use Skip.
func (c *Cursor) SetOffset(off int) { c.pos = off }

// Len returns the length of the underlying buffer.
func (c *Cursor) Len() int { return len(c.data) }

// Remaining returns the number of unread bytes before the cursor's end
// bound, or a negative number if the cursor has been positioned past it.
func (c *Cursor) Remaining() int { return c.end - c.pos }

// Byte reads the next unsigned 8-bit value, or -1 past the end bound.
func (c *Cursor) Byte() int {
	if c.pos < 0 || c.pos >= c.end {
		return -1
	}
	v := int(c.data[c.pos])
	c.pos++
	return v
}

// Word reads the next unsigned 16-bit big-endian value (hi*256+lo), or -1
// past the end bound.
func (c *Cursor) Word() int {
	hi := c.Byte()
	if hi < 0 {
		return -1
	}
	lo := c.Byte()
	if lo < 0 {
		return -1
	}
	return hi*256 + lo
}

// Long reads the next signed 32-bit big-endian two's-complement value.
// On underflow it returns math.NaN() rather than a sentinel integer, so
// callers (flight-prelude seeding of starting LAT/LNG) can distinguish a
// truncated read from a legitimately-zero coordinate without risking a
// bogus value poisoning a running total.
func (c *Cursor) Long() float64 {
	if c.pos < 0 || c.pos+4 > c.end {
		c.pos = c.end
		return math.NaN()
	}
	b0, b1, b2, b3 := c.data[c.pos], c.data[c.pos+1], c.data[c.pos+2], c.data[c.pos+3]
	c.pos += 4
	if b0&0x80 != 0 {
		cb0, cb1, cb2, cb3 := ^b0, ^b1, ^b2, ^b3
		mag := uint32(cb0)<<24 | uint32(cb1)<<16 | uint32(cb2)<<8 | uint32(cb3)
		mag++
		return -float64(mag)
	}
	val := uint32(b0)<<24 | uint32(b1)<<16 | uint32(b2)<<8 | uint32(b3)
	return float64(val)
}

// PeekWordAt reads a big-endian word at an arbitrary absolute offset
// without advancing the cursor, for the flight-offset recovery probe. ok
// is false if the read would run past the end of the buffer.
func (c *Cursor) PeekWordAt(off int) (value int, ok bool) {
	if off < 0 || off+2 > len(c.data) {
		return -1, false
	}
	return int(c.data[off])*256 + int(c.data[off+1]), true
}

// Skip advances the cursor by n bytes, clamped to the buffer bounds.
func (c *Cursor) Skip(n int) {
	c.pos += n
	if c.pos > len(c.data) {
		c.pos = len(c.data)
	}
	if c.pos < 0 {
		c.pos = 0
	}
}

// AtEnd reports whether the cursor has reached its end bound.
func (c *Cursor) AtEnd() bool { return c.pos >= c.end }

// Slice returns a read-only view of already-consumed bytes between two
// absolute offsets, clamped to the buffer bounds. Used to recompute a
// record's checksum after the fact, without the decode loop having to
// thread an accumulator through every byte read.
func (c *Cursor) Slice(start, end int) []byte {
	if start < 0 {
		start = 0
	}
	if end > len(c.data) {
		end = len(c.data)
	}
	if start >= end {
		return nil
	}
	return c.data[start:end]
}

package jpi

import (
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// flightCache memoizes DecodeFlight results per flight id, shared by a
// Decoder and its clones, each entry kept for ten minutes — the same
// TTL-plus-cleanup pattern
// other_examples' go1090 decoder uses for its ICAO address cache: a
// decode is pure given (file bytes, flight id), so recomputing it on
// every call buys nothing beyond the first.
type flightCache struct {
	c *gocache.Cache
}

func newFlightCache() *flightCache {
	return &flightCache{c: gocache.New(10*time.Minute, 10*time.Minute)}
}

func (fc *flightCache) get(id int) (*FlightTable, bool) {
	v, found := fc.c.Get(strconv.Itoa(id))
	if !found {
		return nil, false
	}
	t, ok := v.(*FlightTable)
	return t, ok
}

func (fc *flightCache) set(id int, t *FlightTable) {
	fc.c.SetDefault(strconv.Itoa(id), t)
}

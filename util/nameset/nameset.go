// SPDX-License-Identifier: MIT
//
// Domain name set supporting both exact name and zone match.
//
// Names are stored in lower case without the trailing dot, which is also
// the form dnsmsg.Name.AppendLower() produces, so that lookups of a
// received name need no allocation.
//

package nameset

import (
	"bytes"
	"strings"
)

// A table to speed up the transformation of names to lower case.
var lowerTable [256]byte

func init() {
	for i := 0; i < len(lowerTable); i++ {
		c := byte(i)
		if c >= byte('A') && c <= byte('Z') {
			c = c - byte('A') + byte('a')
		}
		lowerTable[i] = c
	}
}

type nullT struct{}

var null = nullT{}

// Set combines two hash maps: one for exact names and one for zones, where
// a zone matches the name itself and every name below it.
// NOTE: It's the consumer's responsibility to protect concurrent
// modifications; concurrent lookups are fine.
type Set struct {
	names map[string]nullT
	zones map[string]nullT
}

func New() *Set {
	return &Set{
		names: make(map[string]nullT),
		zones: make(map[string]nullT),
	}
}

// Parse builds a set from a list of patterns, where "*.example.com" adds
// the zone "example.com" and anything else adds an exact name.
func Parse(patterns []string) *Set {
	s := New()
	for _, p := range patterns {
		if z, ok := strings.CutPrefix(p, "*."); ok {
			s.AddZone(z)
		} else {
			s.AddName(p)
		}
	}
	return s
}

// Normalize lower-cases the name and strips the trailing dot.
func Normalize(name string) string {
	name = strings.TrimSuffix(name, ".")
	b := []byte(name)
	for i, c := range b {
		b[i] = lowerTable[c]
	}
	return string(b)
}

func (s *Set) AddName(name string) {
	s.names[Normalize(name)] = null
}

func (s *Set) AddZone(name string) {
	s.zones[Normalize(name)] = null
}

func (s *Set) Len() int {
	return len(s.names) + len(s.zones)
}

// Match looks up a normalized name.  It returns whether there is a match,
// and whether that match was exact.
func (s *Set) Match(name []byte) (matched bool, exact bool) {
	if s == nil {
		return false, false
	}
	if _, ok := s.names[string(name)]; ok {
		return true, true
	}
	if len(s.zones) == 0 {
		return false, false
	}
	for i := 0; ; {
		if _, ok := s.zones[string(name[i:])]; ok {
			return true, false
		}
		j := bytes.IndexByte(name[i:], '.')
		if j < 0 {
			break
		}
		i += j + 1
	}
	// The root zone matches everything.
	if _, ok := s.zones[""]; ok {
		return true, false
	}
	return false, false
}

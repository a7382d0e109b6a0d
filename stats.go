package oatmeal

import "fmt"

// Stats counts the ways a Port's receive side accepts or rejects bytes
// (§4.4, §7). None of these counters ever surface as an error return —
// Recv always just returns ok=false on a bad frame, and a caller that
// cares why inspects Stats.
type Stats struct {
	FrameTooShort    uint32
	FrameTooLong     uint32
	MissingStartByte uint32
	MissingEndByte   uint32
	BadChecksums     uint32
	IllegalCharacter uint32
	BytesRead        uint32
	GoodFrames       uint32
	FramesWritten    uint32
	UnknownOpcode    uint32
	BadMessages      uint32
}

// NErrors returns the sum of every counter that represents a rejected or
// malformed frame (every counter except BytesRead, GoodFrames and
// FramesWritten, which track successful traffic).
func (s *Stats) NErrors() uint32 {
	return s.FrameTooShort + s.FrameTooLong + s.MissingStartByte +
		s.MissingEndByte + s.BadChecksums + s.IllegalCharacter +
		s.UnknownOpcode + s.BadMessages
}

// Reset zeroes every counter.
func (s *Stats) Reset() { *s = Stats{} }

// statField pairs a counter's wire name with its current value, in the
// fixed order FormatInto emits them.
type statField struct {
	name  string
	value uint32
}

func (s *Stats) fields() []statField {
	return []statField{
		{"short", s.FrameTooShort},
		{"long", s.FrameTooLong},
		{"nostart", s.MissingStartByte},
		{"noend", s.MissingEndByte},
		{"badck", s.BadChecksums},
		{"illegal", s.IllegalCharacter},
		{"rx", s.BytesRead},
		{"good", s.GoodFrames},
		{"tx", s.FramesWritten},
		{"unkop", s.UnknownOpcode},
		{"badmsg", s.BadMessages},
	}
}

// String renders every nonzero counter as a compact "name=value"
// sequence, in the fixed order above. Zero counters are omitted so a
// healthy port's summary stays short.
func (s *Stats) String() string {
	out := ""
	for _, f := range s.fields() {
		if f.value == 0 {
			continue
		}
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf("%s=%d", f.name, f.value)
	}
	if out == "" {
		return "ok"
	}
	return out
}

// FormatInto appends a dict of every nonzero counter in s to m's
// arguments. It neither starts nor finishes m: the caller picks the
// opcode of the diagnostics frame the dict goes into.
func (s *Stats) FormatInto(m *Message) {
	m.AppendDictStart()
	for _, f := range s.fields() {
		if f.value == 0 {
			continue
		}
		AppendDictKeyValueUint(m, f.name, f.value)
	}
	m.AppendDictEnd()
}

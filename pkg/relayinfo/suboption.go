// Package relayinfo decodes the DHCP Relay Agent Information option
// (RFC 3046, Option 82) from its raw wire bytes into suboptions and their
// nested attributes, and interprets the well-known circuit-id and remote-id
// suboptions.
package relayinfo

import "fmt"

// Well-known suboption ids (RFC 3046 §2.0).
const (
	SuboptionCircuitID byte = 1
	SuboptionRemoteID  byte = 2
)

// FormatError reports a malformed suboption sequence. Only the outer
// suboption layer is validated this strictly; nested attributes are
// decoded leniently and never produce errors.
type FormatError struct {
	Offset int
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("relay agent info: %s at offset %d", e.Reason, e.Offset)
}

// DecodeSuboptions splits the Option 82 value into a map of suboption id to
// raw value bytes. The agent information field is a sequence of
// id/length/value tuples:
//
//	SubOpt  Len    Sub-option Value
//	+------+------+------+------+--...-+------+
//	|  id  |   N  |  s1  |  s2  |      |  sN  |
//	+------+------+------+------+--...-+------+
//
// A suboption whose declared length exceeds the remaining bytes is a
// *FormatError. Ids are not unique on the wire; on duplicates the last
// occurrence wins.
func DecodeSuboptions(data []byte) (map[byte][]byte, error) {
	if len(data) < 2 {
		return nil, &FormatError{Offset: 0, Reason: "buffer too short for suboption header"}
	}

	subs := make(map[byte][]byte)
	i := 0
	for i < len(data) {
		if len(data)-i < 2 {
			return nil, &FormatError{Offset: i, Reason: "buffer too short for suboption header"}
		}
		id := data[i]
		declaredLen := int(data[i+1])
		i += 2

		if i+declaredLen > len(data) {
			return nil, &FormatError{
				Offset: i - 2,
				Reason: fmt.Sprintf("truncated suboption %d value: declared %d bytes, have %d", id, declaredLen, len(data)-i),
			}
		}

		value := make([]byte, declaredLen)
		copy(value, data[i:i+declaredLen])
		subs[id] = value
		i += declaredLen
	}
	return subs, nil
}

// Attribute is one type/length/value tuple nested inside a suboption value:
//
//	+------------+-----------+-------------------------+
//	| Attr Type  | Attr Len  |  Attr Value             |
//	+------------+-----------+------+------+-----+-----+
//	|      X     |     N     |  a1  |  a2  | ... | aN  |
//	+------------+-----------+------+------+-----+-----+
type Attribute struct {
	Type  byte
	Value []byte
}

// DecodeAttributes splits a suboption value into its ordered attribute list.
// The attribute layer is lenient: input shorter than a TLV header yields an
// empty list, and an attribute whose declared length exceeds the remaining
// bytes keeps whatever bytes are left. Relay agents in the field disagree on
// this framing, so malformed attributes must not fail the decode.
func DecodeAttributes(value []byte) []Attribute {
	var attrs []Attribute
	i := 0
	for len(value)-i >= 2 {
		typ := value[i]
		declaredLen := int(value[i+1])
		i += 2

		end := i + declaredLen
		if end > len(value) {
			end = len(value)
		}
		v := make([]byte, end-i)
		copy(v, value[i:end])
		attrs = append(attrs, Attribute{Type: typ, Value: v})
		i += declaredLen
	}
	return attrs
}

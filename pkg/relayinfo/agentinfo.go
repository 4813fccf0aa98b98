package relayinfo

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net"
)

// Attribute types seen in circuit-id and remote-id suboptions.
const (
	attrTypeBinary byte = 0
	attrTypeASCII  byte = 1
)

// CircuitID identifies the relay's ingress port: VLAN, switch module, and
// port number, as encoded by D-Link style access switches.
type CircuitID struct {
	VLAN   uint16
	Module byte
	Port   byte
}

func (c CircuitID) String() string {
	return fmt.Sprintf("vlan %d module %d port %d", c.VLAN, c.Module, c.Port)
}

// AgentInfo is an immutable view over a decoded Option 82 value. It keeps
// the original raw bytes, the suboption map, and the decoded attribute lists
// for the circuit-id and remote-id suboptions.
type AgentInfo struct {
	raw       []byte
	subs      map[byte][]byte
	circuitID []Attribute
	remoteID  []Attribute
}

// Parse decodes a raw Option 82 value into an AgentInfo. The suboption layer
// is validated strictly; a *FormatError means the buffer cannot be trusted
// at all and no partial view is returned.
func Parse(data []byte) (*AgentInfo, error) {
	subs, err := DecodeSuboptions(data)
	if err != nil {
		return nil, err
	}

	raw := make([]byte, len(data))
	copy(raw, data)

	info := &AgentInfo{raw: raw, subs: subs}
	if v, ok := subs[SuboptionCircuitID]; ok {
		info.circuitID = DecodeAttributes(v)
	}
	if v, ok := subs[SuboptionRemoteID]; ok {
		info.remoteID = DecodeAttributes(v)
	}
	return info, nil
}

// IsEmpty reports whether the original raw buffer had zero length.
func (a *AgentInfo) IsEmpty() bool { return len(a.raw) == 0 }

// Size returns the length of the original raw buffer.
func (a *AgentInfo) Size() int { return len(a.raw) }

// Suboption returns a copy of the raw value for a suboption id.
func (a *AgentInfo) Suboption(id byte) ([]byte, bool) {
	v, ok := a.subs[id]
	if !ok {
		return nil, false
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true
}

// Attributes returns the decoded attribute list for a suboption id,
// preserving wire order. Circuit-id and remote-id lists are decoded at
// parse time; other suboptions decode on demand.
func (a *AgentInfo) Attributes(id byte) []Attribute {
	switch id {
	case SuboptionCircuitID:
		return cloneAttributes(a.circuitID)
	case SuboptionRemoteID:
		return cloneAttributes(a.remoteID)
	}
	if v, ok := a.subs[id]; ok {
		return DecodeAttributes(v)
	}
	return nil
}

func cloneAttributes(attrs []Attribute) []Attribute {
	if attrs == nil {
		return nil
	}
	out := make([]Attribute, len(attrs))
	for i, attr := range attrs {
		v := make([]byte, len(attr.Value))
		copy(v, attr.Value)
		out[i] = Attribute{Type: attr.Type, Value: v}
	}
	return out
}

// SuboptionIDs returns the ids present in this option, unordered.
func (a *AgentInfo) SuboptionIDs() []byte {
	ids := make([]byte, 0, len(a.subs))
	for id := range a.subs {
		ids = append(ids, id)
	}
	return ids
}

// RemoteID returns the relay agent identity as a hardware address, when the
// first remote-id attribute is in a recognized format: type 0 with a raw
// 6-byte value, or type 1 with a 17-byte dash-separated ASCII hex string
// ("AA-BB-CC-DD-EE-FF") as emitted by buggy D-Link firmware. An absent or
// unrecognized remote-id is not an error; the second return is false.
func (a *AgentInfo) RemoteID() (net.HardwareAddr, bool) {
	if len(a.remoteID) == 0 {
		return nil, false
	}
	attr := a.remoteID[0]
	switch {
	case attr.Type == attrTypeBinary && len(attr.Value) == 6:
		mac := make(net.HardwareAddr, 6)
		copy(mac, attr.Value)
		return mac, true
	case attr.Type == attrTypeASCII && len(attr.Value) == 17:
		return decodeDashHex(attr.Value)
	}
	return nil, false
}

// CircuitID returns the decoded ingress port identity, when the first
// circuit-id attribute is type 0 with a 4-byte value: a big-endian VLAN id
// followed by module and port bytes. Anything else reads as absent.
func (a *AgentInfo) CircuitID() (CircuitID, bool) {
	if len(a.circuitID) == 0 {
		return CircuitID{}, false
	}
	attr := a.circuitID[0]
	if attr.Type != attrTypeBinary || len(attr.Value) != 4 {
		return CircuitID{}, false
	}
	return CircuitID{
		VLAN:   binary.BigEndian.Uint16(attr.Value[:2]),
		Module: attr.Value[2],
		Port:   attr.Value[3],
	}, true
}

// decodeDashHex strips dash separators and decodes the remaining ASCII hex
// digit pairs into bytes.
func decodeDashHex(v []byte) (net.HardwareAddr, bool) {
	digits := make([]byte, 0, len(v))
	for _, b := range v {
		if b != '-' {
			digits = append(digits, b)
		}
	}
	if len(digits)%2 != 0 {
		return nil, false
	}
	mac := make(net.HardwareAddr, hex.DecodedLen(len(digits)))
	if _, err := hex.Decode(mac, digits); err != nil {
		return nil, false
	}
	return mac, true
}

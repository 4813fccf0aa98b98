package dhcpv4

import (
	"fmt"
	"net"
)

// StaticRoute is a destination/gateway pair in textual form, as it arrives
// from configuration: a CIDR subnet and a dotted-quad gateway.
type StaticRoute struct {
	Subnet  string
	Gateway string
}

// AddressFormatError reports a static route whose subnet or gateway does not
// parse as an IPv4 CIDR or address.
type AddressFormatError struct {
	Field string // "subnet" or "gateway"
	Value string
}

func (e *AddressFormatError) Error() string {
	return fmt.Sprintf("invalid route %s %q", e.Field, e.Value)
}

// Route is a parsed classless static route (RFC 3442). Destination is always
// 4 bytes with host bits zeroed.
type Route struct {
	Destination net.IP
	PrefixLen   int
	Gateway     net.IP
}

func (r Route) String() string {
	return fmt.Sprintf("%s/%d via %s", r.Destination, r.PrefixLen, r.Gateway)
}

// ParseRoute validates one subnet/gateway pair and canonicalizes the
// destination to its network address.
func ParseRoute(sr StaticRoute) (Route, error) {
	_, ipnet, err := net.ParseCIDR(sr.Subnet)
	if err != nil {
		return Route{}, &AddressFormatError{Field: "subnet", Value: sr.Subnet}
	}
	prefixLen, bits := ipnet.Mask.Size()
	if bits != 32 {
		return Route{}, &AddressFormatError{Field: "subnet", Value: sr.Subnet}
	}
	gw := net.ParseIP(sr.Gateway)
	if gw == nil || gw.To4() == nil {
		return Route{}, &AddressFormatError{Field: "gateway", Value: sr.Gateway}
	}
	// net.ParseCIDR masks host bits, so ipnet.IP is already the network
	// address.
	return Route{
		Destination: ipnet.IP.To4(),
		PrefixLen:   prefixLen,
		Gateway:     gw.To4(),
	}, nil
}

// EncodeClasslessRoutes parses and serializes routes per RFC 3442, in input
// order. One invalid entry fails the whole encode; no partial output is
// returned.
func EncodeClasslessRoutes(routes []StaticRoute) ([]byte, error) {
	parsed := make([]Route, 0, len(routes))
	for _, sr := range routes {
		r, err := ParseRoute(sr)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, r)
	}
	return EncodeRoutes(parsed), nil
}

// EncodeRoutes serializes already-parsed routes per RFC 3442. Each entry is
// a prefix-length byte, the ceil(prefix/8) significant octets of the
// destination, then all four gateway octets. Entries are concatenated with
// no padding or terminator.
func EncodeRoutes(routes []Route) []byte {
	var buf []byte
	for _, r := range routes {
		sigOctets := (r.PrefixLen + 7) / 8
		buf = append(buf, byte(r.PrefixLen))
		buf = append(buf, r.Destination.To4()[:sigOctets]...)
		buf = append(buf, IPToBytes(r.Gateway)...)
	}
	return buf
}

// DecodeClasslessRoutes parses an RFC 3442 option value back into routes.
func DecodeClasslessRoutes(b []byte) ([]Route, error) {
	var routes []Route
	i := 0
	for i < len(b) {
		prefixLen := int(b[i])
		i++
		if prefixLen > 32 {
			return nil, fmt.Errorf("invalid prefix length %d at offset %d", prefixLen, i-1)
		}
		sigOctets := (prefixLen + 7) / 8
		if i+sigOctets+4 > len(b) {
			return nil, fmt.Errorf("truncated route at offset %d", i-1)
		}
		dest := make([]byte, 4)
		copy(dest, b[i:i+sigOctets])
		i += sigOctets
		gw := BytesToIP(b[i : i+4])
		i += 4
		routes = append(routes, Route{
			Destination: net.IP(dest),
			PrefixLen:   prefixLen,
			Gateway:     gw,
		})
	}
	return routes, nil
}

// Package dhcpv4 provides DHCP option constants and the wire codecs relaykit
// works with: IPv4 byte helpers and the classless static route option
// (RFC 3442).
package dhcpv4

// OptionCode identifies a DHCP option (RFC 2132 and extensions).
type OptionCode byte

// Option codes this toolkit produces or consumes.
const (
	OptionPad                  OptionCode = 0
	OptionRouter               OptionCode = 3
	OptionRelayAgentInfo       OptionCode = 82  // RFC 3046
	OptionClasslessStaticRoute OptionCode = 121 // RFC 3442
	// Pre-standard code some Microsoft clients request instead of 121.
	// The payload format is identical.
	OptionClasslessStaticRouteMS OptionCode = 249
	OptionEnd                    OptionCode = 255
)

func (c OptionCode) String() string {
	switch c {
	case OptionPad:
		return "Pad"
	case OptionRouter:
		return "Router"
	case OptionRelayAgentInfo:
		return "RelayAgentInformation"
	case OptionClasslessStaticRoute:
		return "ClasslessStaticRoute"
	case OptionClasslessStaticRouteMS:
		return "ClasslessStaticRoute(MS)"
	case OptionEnd:
		return "End"
	default:
		return "Unknown"
	}
}

package dhcpv4

import "net"

// IPToBytes converts a net.IP to a 4-byte slice.
func IPToBytes(ip net.IP) []byte {
	ip4 := ip.To4()
	if ip4 == nil {
		return []byte{0, 0, 0, 0}
	}
	return []byte(ip4)
}

// BytesToIP converts a 4-byte slice to net.IP.
func BytesToIP(b []byte) net.IP {
	if len(b) != 4 {
		return nil
	}
	return net.IPv4(b[0], b[1], b[2], b[3])
}

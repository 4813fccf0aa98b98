// Package resolve looks up IPv4 addresses for hostname gateways in static
// route configuration, using explicitly configured upstream DNS servers
// rather than the system resolver.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/relaykit/relaykit/pkg/dhcpv4"
)

// Resolver queries a fixed list of upstream DNS servers in order.
type Resolver struct {
	servers []string
	client  *dns.Client
	logger  *slog.Logger
}

// New creates a resolver. Server addresses without a port get :53 appended.
func New(servers []string, timeout time.Duration, logger *slog.Logger) *Resolver {
	addrs := make([]string, 0, len(servers))
	for _, s := range servers {
		if !strings.Contains(s, ":") {
			s += ":53"
		}
		addrs = append(addrs, s)
	}
	return &Resolver{
		servers: addrs,
		client:  &dns.Client{Timeout: timeout},
		logger:  logger,
	}
}

// LookupIPv4 resolves host to an IPv4 address. Literal IPv4 addresses are
// returned as-is without a query. Upstreams are tried in order; the first
// answer with an A record wins.
func (r *Resolver) LookupIPv4(ctx context.Context, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, nil
		}
		return nil, fmt.Errorf("%s is not an IPv4 address", host)
	}
	if len(r.servers) == 0 {
		return nil, fmt.Errorf("no DNS servers configured to resolve %q", host)
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		resp, rtt, err := r.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = err
			r.logger.Debug("DNS lookup failed", "server", server, "host", host, "error", err)
			continue
		}
		if resp.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("server %s returned %s for %q", server, dns.RcodeToString[resp.Rcode], host)
			continue
		}
		for _, rr := range resp.Answer {
			if a, ok := rr.(*dns.A); ok {
				r.logger.Debug("resolved gateway", "host", host, "ip", a.A, "server", server, "rtt", rtt)
				return a.A.To4(), nil
			}
		}
		lastErr = fmt.Errorf("no A record for %q from %s", host, server)
	}
	return nil, fmt.Errorf("resolving %q: %w", host, lastErr)
}

// ResolveGateways rewrites hostname gateways in the route list to dotted
// quads, leaving literal addresses untouched. Subnets pass through unchanged
// and route order is preserved.
func (r *Resolver) ResolveGateways(ctx context.Context, routes []dhcpv4.StaticRoute) ([]dhcpv4.StaticRoute, error) {
	out := make([]dhcpv4.StaticRoute, len(routes))
	for i, route := range routes {
		ip, err := r.LookupIPv4(ctx, route.Gateway)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", route.Subnet, err)
		}
		out[i] = dhcpv4.StaticRoute{Subnet: route.Subnet, Gateway: ip.String()}
	}
	return out, nil
}

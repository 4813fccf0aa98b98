// relaykit inspects DHCP Option 82 payloads and builds classless static
// route option values.
// Usage:
//
//	relaykit decode 0106000400640118
//	relaykit routes -config /etc/relaykit/config.toml
//	relaykit routes 10.0.0.0/8=10.0.0.1 0.0.0.0/0=192.168.1.254
//	relaykit routes -decode 080a0a000001
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/relaykit/relaykit/internal/config"
	"github.com/relaykit/relaykit/internal/resolve"
	"github.com/relaykit/relaykit/pkg/dhcpv4"
	"github.com/relaykit/relaykit/pkg/relayinfo"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "decode":
		err = runDecode(os.Args[2:])
	case "routes":
		err = runRoutes(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: relaykit decode <hex>")
	fmt.Fprintln(os.Stderr, "       relaykit routes [-config file] [-decode <hex>] [subnet=gateway ...]")
}

func runDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("decode takes exactly one hex payload")
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(fs.Arg(0), "0x"))
	if err != nil {
		return fmt.Errorf("payload is not valid hex: %w", err)
	}

	info, err := relayinfo.Parse(raw)
	if err != nil {
		return err
	}

	fmt.Printf("option %d (%s), %d bytes\n", dhcpv4.OptionRelayAgentInfo, dhcpv4.OptionRelayAgentInfo, info.Size())

	ids := info.SuboptionIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		value, _ := info.Suboption(id)
		fmt.Printf("  suboption %d: %s\n", id, hex.EncodeToString(value))
		for _, attr := range info.Attributes(id) {
			fmt.Printf("    attr type %d len %d: %s\n", attr.Type, len(attr.Value), hex.EncodeToString(attr.Value))
		}
	}

	if cid, ok := info.CircuitID(); ok {
		fmt.Printf("circuit-id: %s\n", cid)
	} else {
		fmt.Println("circuit-id: not recognized")
	}
	if remote, ok := info.RemoteID(); ok {
		fmt.Printf("remote-id:  %s\n", remote)
	} else {
		fmt.Println("remote-id:  not recognized")
	}
	return nil
}

func runRoutes(args []string) error {
	fs := flag.NewFlagSet("routes", flag.ExitOnError)
	configPath := fs.String("config", "", "read routes from this config file")
	decodeHex := fs.String("decode", "", "decode an RFC 3442 payload instead of encoding")
	fs.Parse(args)

	if *decodeHex != "" {
		raw, err := hex.DecodeString(strings.TrimPrefix(*decodeHex, "0x"))
		if err != nil {
			return fmt.Errorf("payload is not valid hex: %w", err)
		}
		routes, err := dhcpv4.DecodeClasslessRoutes(raw)
		if err != nil {
			return err
		}
		for _, r := range routes {
			fmt.Println(r)
		}
		return nil
	}

	var routes []dhcpv4.StaticRoute
	switch {
	case *configPath != "":
		cfg, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		routes = cfg.Routes()
		if len(cfg.Resolver.Servers) > 0 {
			quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
			r := resolve.New(cfg.Resolver.Servers, cfg.ResolverTimeout(), quiet)
			routes, err = r.ResolveGateways(context.Background(), routes)
			if err != nil {
				return err
			}
		}
	case fs.NArg() > 0:
		for _, arg := range fs.Args() {
			subnet, gateway, ok := strings.Cut(arg, "=")
			if !ok {
				return fmt.Errorf("route %q: want subnet=gateway", arg)
			}
			routes = append(routes, dhcpv4.StaticRoute{Subnet: subnet, Gateway: gateway})
		}
	default:
		return fmt.Errorf("no routes given: pass -config or subnet=gateway arguments")
	}

	encoded, err := dhcpv4.EncodeClasslessRoutes(routes)
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(encoded))
	return nil
}

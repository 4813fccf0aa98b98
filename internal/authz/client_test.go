package authz

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
	"layeh.com/radius/rfc2869"

	"github.com/relaykit/relaykit/internal/config"
	"github.com/relaykit/relaykit/pkg/relayinfo"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAgentInfo(t *testing.T) *relayinfo.AgentInfo {
	t.Helper()
	data := []byte{
		relayinfo.SuboptionCircuitID, 6, 0, 4, 0x00, 0x0A, 0x02, 0x07,
		relayinfo.SuboptionRemoteID, 8, 0, 6, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF,
	}
	info, err := relayinfo.Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return info
}

func TestAuthorizeDisabledAccepts(t *testing.T) {
	c := NewClient(config.RADIUSConfig{Enabled: false}, testLogger())

	res := c.Authorize(context.Background(), Request{Info: testAgentInfo(t)})
	if !res.Accepted {
		t.Error("disabled client rejected request")
	}
	if res.Code != "no_radius" {
		t.Errorf("code = %q, want no_radius", res.Code)
	}
}

func TestAuthorizeAgainstLocalServer(t *testing.T) {
	secret := []byte("testing123")

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	var gotNASPort, gotCalledStation string
	server := radius.PacketServer{
		SecretSource: radius.StaticSecretSource(secret),
		Handler: radius.HandlerFunc(func(w radius.ResponseWriter, r *radius.Request) {
			gotNASPort = rfc2869.NASPortID_GetString(r.Packet)
			gotCalledStation = rfc2865.CalledStationID_GetString(r.Packet)
			w.Write(r.Response(radius.CodeAccessAccept))
		}),
	}
	go server.Serve(conn)
	defer server.Shutdown(context.Background())

	mac, _ := net.ParseMAC("de:ad:be:ef:00:01")
	c := NewClient(config.RADIUSConfig{
		Enabled:      true,
		Address:      conn.LocalAddr().String(),
		Secret:       string(secret),
		Timeout:      "2s",
		Retries:      1,
		SendOption82: true,
	}, testLogger())

	res := c.Authorize(context.Background(), Request{
		Info:   testAgentInfo(t),
		MAC:    mac,
		GIAddr: "192.168.1.1",
	})

	if !res.Accepted {
		t.Fatalf("not accepted: %+v", res)
	}
	if gotNASPort != "vlan 10 module 2 port 7" {
		t.Errorf("NAS-Port-Id = %q", gotNASPort)
	}
	if gotCalledStation != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("Called-Station-Id = %q", gotCalledStation)
	}
}

func TestAuthorizeServerUnreachable(t *testing.T) {
	c := NewClient(config.RADIUSConfig{
		Enabled: true,
		Address: "127.0.0.1:1", // nothing listens here
		Secret:  "testing123",
		Timeout: "100ms",
		Retries: 2,
	}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res := c.Authorize(ctx, Request{Info: testAgentInfo(t)})
	if res.Accepted {
		t.Error("accepted despite unreachable server")
	}
	if res.Code != "error" {
		t.Errorf("code = %q, want error", res.Code)
	}
}

func TestParseTimeout(t *testing.T) {
	if d := parseTimeout("250ms"); d != 250*time.Millisecond {
		t.Errorf("parseTimeout(250ms) = %v", d)
	}
	if d := parseTimeout(""); d != 5*time.Second {
		t.Errorf("parseTimeout(\"\") = %v, want 5s default", d)
	}
	if d := parseTimeout("-1s"); d != 5*time.Second {
		t.Errorf("parseTimeout(-1s) = %v, want 5s default", d)
	}
}

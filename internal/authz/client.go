// Package authz makes RADIUS authorization decisions from decoded relay
// agent information. Option 82 fields map to RADIUS attributes per RFC 4014:
// circuit-id → NAS-Port-Id, remote-id → Called-Station-Id, the relay address
// → NAS-IP-Address.
package authz

import (
	"context"
	"log/slog"
	"net"
	"time"

	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
	"layeh.com/radius/rfc2869"

	"github.com/relaykit/relaykit/internal/config"
	"github.com/relaykit/relaykit/internal/metrics"
	"github.com/relaykit/relaykit/pkg/relayinfo"
)

// Request carries the decoded relay data for one authorization decision.
type Request struct {
	Info   *relayinfo.AgentInfo
	MAC    net.HardwareAddr // client hardware address
	GIAddr string           // relay agent IP
}

// Result holds the outcome of an authorization attempt.
type Result struct {
	Accepted bool
	Code     string
	Error    string
	Latency  float64 // milliseconds
}

// Client performs RADIUS Access-Requests for relay observations.
type Client struct {
	cfg    config.RADIUSConfig
	logger *slog.Logger
}

// NewClient creates an authorization client. A disabled configuration is
// valid: Authorize then accepts everything without network I/O.
func NewClient(cfg config.RADIUSConfig, logger *slog.Logger) *Client {
	return &Client{cfg: cfg, logger: logger}
}

// Authorize sends an Access-Request for the observation and reports the
// server's verdict.
func (c *Client) Authorize(ctx context.Context, req Request) Result {
	if !c.cfg.Enabled {
		return Result{Accepted: true, Code: "no_radius"}
	}

	packet := radius.New(radius.CodeAccessRequest, []byte(c.cfg.Secret))
	username := "unknown"
	if req.MAC != nil {
		username = req.MAC.String()
		rfc2865.CallingStationID_SetString(packet, username)
	}
	// MAC as both identity and password, the usual MAB convention.
	rfc2865.UserName_SetString(packet, username)
	rfc2865.UserPassword_SetString(packet, username)
	if c.cfg.NASIdentifier != "" {
		rfc2865.NASIdentifier_SetString(packet, c.cfg.NASIdentifier)
	}

	if c.cfg.SendOption82 {
		if cid, ok := req.Info.CircuitID(); ok {
			rfc2869.NASPortID_SetString(packet, cid.String())
		}
		if remote, ok := req.Info.RemoteID(); ok {
			rfc2865.CalledStationID_SetString(packet, remote.String())
		}
		if ip := net.ParseIP(req.GIAddr); ip != nil {
			rfc2865.NASIPAddress_Set(packet, ip)
		}
	}

	timeout := parseTimeout(c.cfg.Timeout)
	retries := c.cfg.Retries
	if retries < 1 {
		retries = 1
	}

	start := time.Now()
	var resp *radius.Packet
	var err error
	for attempt := 0; attempt < retries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		resp, err = radius.Exchange(attemptCtx, packet, c.cfg.Address)
		cancel()
		if err == nil || ctx.Err() != nil {
			break
		}
	}
	latency := float64(time.Since(start).Microseconds()) / 1000
	metrics.AuthzDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.AuthzRequests.WithLabelValues("error").Inc()
		c.logger.Warn("RADIUS authorization failed",
			"server", c.cfg.Address,
			"user", username,
			"error", err)
		return Result{Code: "error", Error: err.Error(), Latency: latency}
	}

	result := Result{
		Accepted: resp.Code == radius.CodeAccessAccept,
		Code:     resp.Code.String(),
		Latency:  latency,
	}
	metrics.AuthzRequests.WithLabelValues(result.Code).Inc()

	c.logger.Debug("RADIUS authorization result",
		"server", c.cfg.Address,
		"user", username,
		"accepted", result.Accepted,
		"code", result.Code,
		"latency_ms", result.Latency)

	return result
}

func parseTimeout(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

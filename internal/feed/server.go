// Package feed accepts relay observation events from an external DHCP stack
// over a UNIX socket — one JSON object per line — and answers each with an
// authorization verdict. The DHCP stack extracts the raw Option 82 value;
// decoding, recording, and RADIUS authorization happen here.
package feed

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/relaykit/relaykit/internal/authz"
	"github.com/relaykit/relaykit/internal/metrics"
	"github.com/relaykit/relaykit/internal/observe"
	"github.com/relaykit/relaykit/pkg/relayinfo"
)

// Event is one observation from the DHCP stack.
type Event struct {
	Option82 string `json:"option82"` // hex-encoded Option 82 value
	MAC      string `json:"mac,omitempty"`
	GIAddr   string `json:"giaddr,omitempty"`
}

// Verdict is the reply for one event.
type Verdict struct {
	Accepted  bool   `json:"accepted"`
	Code      string `json:"code"`
	CircuitID string `json:"circuit_id,omitempty"`
	RemoteID  string `json:"remote_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Server owns the UNIX socket listener and the per-connection readers.
type Server struct {
	socketPath string
	store      *observe.Store
	authz      *authz.Client
	logger     *slog.Logger

	ln net.Listener
	wg sync.WaitGroup
}

// NewServer creates a feed server. The store and authz client may not be nil;
// a disabled authz config still yields a working (accept-all) client.
func NewServer(socketPath string, store *observe.Store, az *authz.Client, logger *slog.Logger) *Server {
	return &Server{
		socketPath: socketPath,
		store:      store,
		authz:      az,
		logger:     logger,
	}
}

// Start binds the socket and begins accepting connections.
func (s *Server) Start() error {
	// Remove a stale socket left by an unclean shutdown.
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	s.ln = ln
	s.logger.Info("feed socket listening", "path", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener, waits for in-flight connections, and removes
// the socket file.
func (s *Server) Stop() {
	if s.ln != nil {
		s.ln.Close()
	}
	s.wg.Wait()
	os.Remove(s.socketPath)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return // listener closed
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		metrics.EventsReceived.Inc()

		var evt Event
		if err := json.Unmarshal(line, &evt); err != nil {
			metrics.EventErrors.WithLabelValues("json").Inc()
			enc.Encode(Verdict{Code: "bad_event", Error: err.Error()})
			continue
		}
		enc.Encode(s.process(evt))
	}
}

// process decodes one event, records it, and asks for authorization.
func (s *Server) process(evt Event) Verdict {
	raw, err := hex.DecodeString(evt.Option82)
	if err != nil {
		metrics.EventErrors.WithLabelValues("hex").Inc()
		return Verdict{Code: "bad_event", Error: fmt.Sprintf("option82: %v", err)}
	}

	info, err := relayinfo.Parse(raw)
	if err != nil {
		metrics.AgentInfoDecodes.WithLabelValues("format_error").Inc()
		return Verdict{Code: "format_error", Error: err.Error()}
	}
	metrics.AgentInfoDecodes.WithLabelValues("ok").Inc()
	countFormats(info)

	var mac net.HardwareAddr
	if evt.MAC != "" {
		if m, err := net.ParseMAC(evt.MAC); err == nil {
			mac = m
		} else {
			s.logger.Debug("ignoring unparseable client MAC", "mac", evt.MAC, "error", err)
		}
	}

	s.store.Record(observe.Observation{Info: info, MAC: macString(mac), GIAddr: evt.GIAddr})

	res := s.authz.Authorize(context.Background(), authz.Request{
		Info:   info,
		MAC:    mac,
		GIAddr: evt.GIAddr,
	})

	v := Verdict{Accepted: res.Accepted, Code: res.Code, Error: res.Error}
	if cid, ok := info.CircuitID(); ok {
		v.CircuitID = cid.String()
	}
	if remote, ok := info.RemoteID(); ok {
		v.RemoteID = remote.String()
	}
	return v
}

// countFormats classifies the decoded identifier variants for metrics.
func countFormats(info *relayinfo.AgentInfo) {
	if attrs := info.Attributes(relayinfo.SuboptionCircuitID); len(attrs) > 0 {
		format := "unrecognized"
		if _, ok := info.CircuitID(); ok {
			format = "binary"
		}
		metrics.AgentInfoFormats.WithLabelValues("circuit_id", format).Inc()
	}
	if attrs := info.Attributes(relayinfo.SuboptionRemoteID); len(attrs) > 0 {
		format := "unrecognized"
		if _, ok := info.RemoteID(); ok {
			if attrs[0].Type == 1 {
				format = "dash_hex"
			} else {
				format = "binary"
			}
		}
		metrics.AgentInfoFormats.WithLabelValues("remote_id", format).Inc()
	}
}

func macString(mac net.HardwareAddr) string {
	if mac == nil {
		return ""
	}
	return mac.String()
}

// Package observe maintains a persistent ledger of relay agent observations
// built from decoded Option 82 data. Remote-id identifies the switch,
// circuit-id the ingress port — the store learns those relationships over
// time: switch → port → device.
package observe

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/relaykit/relaykit/internal/metrics"
	"github.com/relaykit/relaykit/pkg/relayinfo"
)

var bucketObservations = []byte("observations")

// Switch represents one relay agent, keyed by its remote-id.
type Switch struct {
	RemoteID  string           `json:"remote_id"`
	GIAddr    string           `json:"giaddr,omitempty"`
	FirstSeen time.Time        `json:"first_seen"`
	LastSeen  time.Time        `json:"last_seen"`
	Ports     map[string]*Port `json:"ports"`
}

// Port represents one ingress port on a switch, keyed by circuit-id.
type Port struct {
	VLAN      uint16    `json:"vlan"`
	Module    byte      `json:"module"`
	Port      byte      `json:"port"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Devices   []*Device `json:"devices"`
}

// Device is a client seen behind a port.
type Device struct {
	MAC       string    `json:"mac"`
	GIAddr    string    `json:"giaddr,omitempty"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// Observation is one decoded relay event handed to Record.
type Observation struct {
	Info   *relayinfo.AgentInfo
	MAC    string // client hardware address from the DHCP packet
	GIAddr string // relay agent IP
}

// Store persists observations in BoltDB with an in-memory index for reads.
type Store struct {
	db       *bolt.DB
	logger   *slog.Logger
	mu       sync.RWMutex
	switches map[string]*Switch
}

// Open opens or creates the observation database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening observation database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketObservations)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating observations bucket: %w", err)
	}

	s := &Store{
		db:       db,
		logger:   logger,
		switches: make(map[string]*Switch),
	}
	if err := s.loadAll(); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading observations: %w", err)
	}
	metrics.SwitchesTracked.Set(float64(len(s.switches)))
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record updates the ledger from one observation. Events without a usable
// remote-id are ignored — there is no stable switch key to file them under.
func (s *Store) Record(obs Observation) {
	remote, ok := obs.Info.RemoteID()
	if !ok {
		return
	}
	switchKey := remote.String()
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sw, ok := s.switches[switchKey]
	if !ok {
		sw = &Switch{
			RemoteID:  switchKey,
			FirstSeen: now,
			Ports:     make(map[string]*Port),
		}
		s.switches[switchKey] = sw
		metrics.SwitchesTracked.Set(float64(len(s.switches)))
	}
	sw.LastSeen = now
	if obs.GIAddr != "" {
		sw.GIAddr = obs.GIAddr
	}

	portKey := "unknown"
	var cid relayinfo.CircuitID
	if c, ok := obs.Info.CircuitID(); ok {
		cid = c
		portKey = c.String()
	}

	port, ok := sw.Ports[portKey]
	if !ok {
		port = &Port{
			VLAN:      cid.VLAN,
			Module:    cid.Module,
			Port:      cid.Port,
			FirstSeen: now,
		}
		sw.Ports[portKey] = port
	}
	port.LastSeen = now

	if obs.MAC != "" {
		found := false
		for _, dev := range port.Devices {
			if dev.MAC == obs.MAC {
				dev.GIAddr = obs.GIAddr
				dev.LastSeen = now
				found = true
				break
			}
		}
		if !found {
			port.Devices = append(port.Devices, &Device{
				MAC:       obs.MAC,
				GIAddr:    obs.GIAddr,
				FirstSeen: now,
				LastSeen:  now,
			})
		}
	}

	s.persist(switchKey, sw)
	metrics.ObservationsRecorded.Inc()
}

// Snapshot returns a deep copy of all switches, most recently seen first.
func (s *Store) Snapshot() []Switch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Switch, 0, len(s.switches))
	for _, sw := range s.switches {
		cp := *sw
		cp.Ports = make(map[string]*Port, len(sw.Ports))
		for k, p := range sw.Ports {
			pCopy := *p
			pCopy.Devices = make([]*Device, len(p.Devices))
			for i, d := range p.Devices {
				dCopy := *d
				pCopy.Devices[i] = &dCopy
			}
			cp.Ports[k] = &pCopy
		}
		result = append(result, cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].LastSeen.After(result[j].LastSeen)
	})
	return result
}

// Stats returns summary counts for the ledger.
func (s *Store) Stats() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ports, devices := 0, 0
	for _, sw := range s.switches {
		ports += len(sw.Ports)
		for _, p := range sw.Ports {
			devices += len(p.Devices)
		}
	}
	return map[string]int{
		"switches": len(s.switches),
		"ports":    ports,
		"devices":  devices,
	}
}

// persist writes one switch node to BoltDB (caller holds the write lock).
func (s *Store) persist(key string, sw *Switch) {
	data, err := json.Marshal(sw)
	if err != nil {
		s.logger.Error("marshal switch node", "switch", key, "error", err)
		return
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketObservations).Put([]byte(key), data)
	})
	if err != nil {
		s.logger.Error("persist switch node", "switch", key, "error", err)
	}
}

// loadAll reads all switch nodes from BoltDB into the in-memory index.
func (s *Store) loadAll() error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketObservations)
		return b.ForEach(func(k, v []byte) error {
			var sw Switch
			if err := json.Unmarshal(v, &sw); err != nil {
				s.logger.Warn("skipping corrupt switch record", "key", string(k), "error", err)
				return nil
			}
			if sw.Ports == nil {
				sw.Ports = make(map[string]*Port)
			}
			s.switches[string(k)] = &sw
			return nil
		})
	})
}

// Package transport defines the wire contract a concrete RPC layer must
// satisfy to drive raft.Config.Transport and proxy.Options.Transport; it
// ships no listener, dialer, or codec (spec §1 "the wire transport
// itself is out of scope", spec §6 "Transport contract").
//
// (gyuho-db rafthttp.Transporter defines the equivalent contract for the
// teacher's etcd-style raft package; PeerConfig below keeps its TLS and
// peer-membership shape, translated to this module's uint64 node IDs)
package transport

import (
	"fmt"
	"time"

	"github.com/quorumkv/raft/pkg/tlsutil"
	"github.com/quorumkv/raft/pkg/types"
)

// PeerConfig names one remote member a Transporter should be able to
// reach, by node ID rather than the teacher's types.ID/URL pair, since
// this module's raftpb.Member already keys everything off uint64.
type PeerConfig struct {
	NodeID uint64
	Addrs  []string
	TLS    tlsutil.TLSInfo
}

// Validate parses every address with types.NewURL, rejecting the
// malformed peer URLs a hand-rolled config loader would otherwise only
// catch at dial time.
func (p PeerConfig) Validate() error {
	if len(p.Addrs) == 0 {
		return fmt.Errorf("transport: peer %d has no addresses", p.NodeID)
	}
	for _, a := range p.Addrs {
		if _, err := types.NewURL(a); err != nil {
			return fmt.Errorf("transport: peer %d: %w", p.NodeID, err)
		}
	}
	return nil
}

// Transporter is the lifecycle contract a concrete RPC implementation
// (HTTP/2, gRPC, whatever a deployment chooses) must expose so a Node or
// Proxy can be wired up without this module caring which one.
//
// (gyuho-db rafthttp.Transporter: Start/Stop/AddPeer/RemovePeer/
// ActiveSince, trimmed to the subset this module's Config/Options
// actually need)
type Transporter interface {
	// Start begins accepting and dialing peer connections. Must be
	// called once, before the Transporter is handed to raft.Config or
	// proxy.Options.
	Start() error

	// Stop tears down every connection and releases listener resources.
	Stop() error

	// AddPeer makes nodeID reachable at addrs, replacing any prior
	// address set for the same ID.
	AddPeer(nodeID uint64, addrs []string)

	// RemovePeer stops trying to reach nodeID.
	RemovePeer(nodeID uint64)

	// ActiveSince reports when the connection to nodeID last transitioned
	// to healthy, or the zero Time if it is not currently connected.
	ActiveSince(nodeID uint64) time.Time
}

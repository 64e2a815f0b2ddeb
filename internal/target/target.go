// Package target builds the set of TPU addresses to probe from cluster
// gossip data, vote accounts, and caller-supplied destinations.
package target

import (
	"net/netip"

	"soldist/internal/cluster"
	"soldist/internal/report"
)

// Target is one TPU address to probe, with the stake and node identities
// that map to it.
type Target struct {
	Addr  netip.AddrPort
	Stake uint64
	IDs   []string
}

// Set maps each TPU address to its target. Multiple identities sharing an
// address fold into one target.
type Set map[netip.AddrPort]*Target

func (s Set) get(addr netip.AddrPort) *Target {
	t, ok := s[addr]
	if !ok {
		t = &Target{Addr: addr}
		s[addr] = t
	}
	return t
}

func parseTPU(s string) (netip.AddrPort, bool) {
	if s == "" {
		return netip.AddrPort{}, false
	}
	addr, err := netip.ParseAddrPort(s)
	return addr, err == nil
}

// FromCluster builds targets for every staked vote account in the cluster.
// It returns the set and the total activated stake, counting every staked
// identity toward the total even when it cannot be probed.
func FromCluster(nodes []cluster.ContactInfo, votes []cluster.VoteAccount, ledger report.Ledger) (Set, uint64) {
	byPubkey := make(map[string]cluster.ContactInfo, len(nodes))
	for _, n := range nodes {
		byPubkey[n.Pubkey] = n
	}

	set := make(Set)
	var totalStake uint64
	for _, va := range votes {
		if va.ActivatedStake == 0 {
			continue
		}
		totalStake += va.ActivatedStake
		ci, ok := byPubkey[va.NodePubkey]
		if !ok {
			ledger.Record(report.NoContactInfo, va.ActivatedStake)
			continue
		}
		addr, ok := parseTPU(ci.TPUQUIC)
		if !ok {
			ledger.Record(report.NoTPU, va.ActivatedStake)
			continue
		}
		t := set.get(addr)
		t.IDs = append(t.IDs, va.NodePubkey)
		t.Stake += va.ActivatedStake
	}
	return set, totalStake
}

// FromClusterUnweighted builds targets for every gossip node regardless of
// stake. Targets carry zero stake.
func FromClusterUnweighted(nodes []cluster.ContactInfo, ledger report.Ledger) Set {
	set := make(Set)
	for _, n := range nodes {
		addr, ok := parseTPU(n.TPUQUIC)
		if !ok {
			ledger.Record(report.NoTPU, 0)
			continue
		}
		t := set.get(addr)
		t.IDs = append(t.IDs, n.Pubkey)
	}
	return set
}

// FromDestinations builds targets for caller-supplied pubkeys and addresses,
// resolving stake from the vote accounts. Only the stake of resolvable
// destinations counts toward the returned total.
func FromDestinations(pubkeys []string, addrs []netip.AddrPort, nodes []cluster.ContactInfo, votes []cluster.VoteAccount, ledger report.Ledger) (Set, uint64) {
	voteByPubkey := make(map[string]cluster.VoteAccount, len(votes))
	for _, va := range votes {
		voteByPubkey[va.NodePubkey] = va
	}
	nodeByPubkey := make(map[string]cluster.ContactInfo, len(nodes))
	for _, n := range nodes {
		nodeByPubkey[n.Pubkey] = n
	}

	set := make(Set)
	var totalStake uint64

	for _, pk := range pubkeys {
		va, ok := voteByPubkey[pk]
		if !ok {
			ledger.Record(report.NotAStakedNode, 0)
			continue
		}
		ci, ok := nodeByPubkey[pk]
		if !ok {
			ledger.Record(report.NoContactInfo, va.ActivatedStake)
			continue
		}
		addr, ok := parseTPU(ci.TPUQUIC)
		if !ok {
			ledger.Record(report.NoTPU, va.ActivatedStake)
			continue
		}
		t := set.get(addr)
		t.IDs = append(t.IDs, pk)
		t.Stake += va.ActivatedStake
		totalStake += va.ActivatedStake
	}

	if len(addrs) > 0 {
		nodesByAddr := groupByTPU(nodes)
		for _, addr := range addrs {
			t := set.get(addr)
			for _, ci := range nodesByAddr[addr] {
				if va, ok := voteByPubkey[ci.Pubkey]; ok {
					t.IDs = append(t.IDs, ci.Pubkey)
					t.Stake += va.ActivatedStake
					totalStake += va.ActivatedStake
				}
			}
			// An address nobody stakes behind cannot be weighted, so it
			// is dropped rather than skewing the mean. One error per
			// address, however many identities mapped to it.
			if t.Stake == 0 {
				ledger.Record(report.NotAStakedNode, 0)
				delete(set, addr)
			}
		}
	}
	return set, totalStake
}

// FromDestinationsUnweighted builds targets for caller-supplied pubkeys and
// addresses without stake resolution. Addresses are probed even when no
// gossip node advertises them.
func FromDestinationsUnweighted(pubkeys []string, addrs []netip.AddrPort, nodes []cluster.ContactInfo, ledger report.Ledger) Set {
	nodeByPubkey := make(map[string]cluster.ContactInfo, len(nodes))
	for _, n := range nodes {
		nodeByPubkey[n.Pubkey] = n
	}

	set := make(Set)
	for _, pk := range pubkeys {
		ci, ok := nodeByPubkey[pk]
		if !ok {
			ledger.Record(report.NoContactInfo, 0)
			continue
		}
		addr, ok := parseTPU(ci.TPUQUIC)
		if !ok {
			ledger.Record(report.NoTPU, 0)
			continue
		}
		t := set.get(addr)
		t.IDs = append(t.IDs, pk)
	}

	if len(addrs) > 0 {
		nodesByAddr := groupByTPU(nodes)
		for _, addr := range addrs {
			t := set.get(addr)
			for _, ci := range nodesByAddr[addr] {
				t.IDs = append(t.IDs, ci.Pubkey)
			}
		}
	}
	return set
}

func groupByTPU(nodes []cluster.ContactInfo) map[netip.AddrPort][]cluster.ContactInfo {
	byAddr := make(map[netip.AddrPort][]cluster.ContactInfo)
	for _, n := range nodes {
		if addr, ok := parseTPU(n.TPUQUIC); ok {
			byAddr[addr] = append(byAddr[addr], n)
		}
	}
	return byAddr
}

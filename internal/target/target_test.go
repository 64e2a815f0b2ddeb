package target

import (
	"net/netip"
	"testing"

	"soldist/internal/cluster"
	"soldist/internal/report"
)

var (
	nodes = []cluster.ContactInfo{
		{Pubkey: "A", Gossip: "192.0.2.1:8000", TPUQUIC: "192.0.2.1:8001"},
		{Pubkey: "B", Gossip: "192.0.2.2:8000", TPUQUIC: "192.0.2.2:8001"},
		{Pubkey: "C", Gossip: "192.0.2.3:8000"},
		{Pubkey: "D", Gossip: "192.0.2.1:8000", TPUQUIC: "192.0.2.1:8001"},
	}
	votes = []cluster.VoteAccount{
		{VotePubkey: "vA", NodePubkey: "A", ActivatedStake: 100},
		{VotePubkey: "vB", NodePubkey: "B", ActivatedStake: 200},
		{VotePubkey: "vC", NodePubkey: "C", ActivatedStake: 300},
		{VotePubkey: "vD", NodePubkey: "D", ActivatedStake: 0},
		{VotePubkey: "vE", NodePubkey: "E", ActivatedStake: 400},
	}
)

func addr(s string) netip.AddrPort { return netip.MustParseAddrPort(s) }

func TestFromCluster(t *testing.T) {
	t.Parallel()
	ledger := report.NewLedger()
	set, total := FromCluster(nodes, votes, ledger)

	// Zero-stake D skipped; E has no contact info; C has no TPU. All staked
	// identities count toward the total whether probed or not.
	if total != 1000 {
		t.Fatalf("total=%d, want 1000", total)
	}
	if len(set) != 2 {
		t.Fatalf("targets=%d, want 2", len(set))
	}
	if got := set[addr("192.0.2.1:8001")]; got == nil || got.Stake != 100 || len(got.IDs) != 1 {
		t.Fatalf("target A=%+v", got)
	}
	if e := ledger[report.NoContactInfo]; e.Count != 1 || e.Stake != 400 {
		t.Fatalf("NoContactInfo=%+v", e)
	}
	if e := ledger[report.NoTPU]; e.Count != 1 || e.Stake != 300 {
		t.Fatalf("NoTPU=%+v", e)
	}
}

func TestFromCluster_SharedAddressFolds(t *testing.T) {
	t.Parallel()
	shared := []cluster.ContactInfo{
		{Pubkey: "A", TPUQUIC: "192.0.2.9:8001"},
		{Pubkey: "B", TPUQUIC: "192.0.2.9:8001"},
	}
	stakes := []cluster.VoteAccount{
		{NodePubkey: "A", ActivatedStake: 10},
		{NodePubkey: "B", ActivatedStake: 20},
	}
	ledger := report.NewLedger()
	set, total := FromCluster(shared, stakes, ledger)
	if total != 30 || len(set) != 1 {
		t.Fatalf("total=%d targets=%d", total, len(set))
	}
	got := set[addr("192.0.2.9:8001")]
	if got.Stake != 30 || len(got.IDs) != 2 {
		t.Fatalf("folded target=%+v", got)
	}
}

func TestFromClusterUnweighted(t *testing.T) {
	t.Parallel()
	ledger := report.NewLedger()
	set := FromClusterUnweighted(nodes, ledger)

	if len(set) != 2 {
		t.Fatalf("targets=%d, want 2", len(set))
	}
	got := set[addr("192.0.2.1:8001")]
	if got.Stake != 0 || len(got.IDs) != 2 {
		t.Fatalf("target=%+v", got)
	}
	if e := ledger[report.NoTPU]; e.Count != 1 || e.Stake != 0 {
		t.Fatalf("NoTPU=%+v", e)
	}
}

func TestFromDestinations_Pubkeys(t *testing.T) {
	t.Parallel()
	ledger := report.NewLedger()
	set, total := FromDestinations([]string{"A", "C", "E", "X"}, nil, nodes, votes, ledger)

	// A resolves; C is staked but has no TPU; E is staked but not in
	// gossip; X has no vote account at all.
	if total != 100 {
		t.Fatalf("total=%d, want 100", total)
	}
	if len(set) != 1 {
		t.Fatalf("targets=%d, want 1", len(set))
	}
	if e := ledger[report.NoTPU]; e.Count != 1 || e.Stake != 300 {
		t.Fatalf("NoTPU=%+v", e)
	}
	if e := ledger[report.NoContactInfo]; e.Count != 1 || e.Stake != 400 {
		t.Fatalf("NoContactInfo=%+v", e)
	}
	if e := ledger[report.NotAStakedNode]; e.Count != 1 || e.Stake != 0 {
		t.Fatalf("NotAStakedNode=%+v", e)
	}
}

func TestFromDestinations_Addresses(t *testing.T) {
	t.Parallel()
	ledger := report.NewLedger()
	set, total := FromDestinations(nil, []netip.AddrPort{addr("192.0.2.1:8001")}, nodes, votes, ledger)

	// A and D both advertise the address; D's stake is zero.
	if total != 100 {
		t.Fatalf("total=%d, want 100", total)
	}
	got := set[addr("192.0.2.1:8001")]
	if got == nil || got.Stake != 100 || len(got.IDs) != 2 {
		t.Fatalf("target=%+v", got)
	}
}

func TestFromDestinations_UnstakedAddressDropped(t *testing.T) {
	t.Parallel()
	ledger := report.NewLedger()
	// 192.0.2.7:8001 is advertised by nobody with stake. One error is
	// counted per address, not per identity behind it.
	unstaked := []cluster.ContactInfo{
		{Pubkey: "P", TPUQUIC: "192.0.2.7:8001"},
		{Pubkey: "Q", TPUQUIC: "192.0.2.7:8001"},
	}
	set, total := FromDestinations(nil, []netip.AddrPort{addr("192.0.2.7:8001")}, unstaked, nil, ledger)
	if total != 0 || len(set) != 0 {
		t.Fatalf("total=%d targets=%d", total, len(set))
	}
	if e := ledger[report.NotAStakedNode]; e.Count != 1 {
		t.Fatalf("NotAStakedNode=%+v", e)
	}
}

func TestFromDestinationsUnweighted(t *testing.T) {
	t.Parallel()
	ledger := report.NewLedger()
	set := FromDestinationsUnweighted([]string{"A", "C", "X"}, []netip.AddrPort{addr("192.0.2.5:8001")}, nodes, ledger)

	// The unknown address is still probed, with no identities attached.
	if len(set) != 2 {
		t.Fatalf("targets=%d, want 2", len(set))
	}
	if got := set[addr("192.0.2.5:8001")]; got == nil || len(got.IDs) != 0 {
		t.Fatalf("address target=%+v", got)
	}
	if e := ledger[report.NoTPU]; e.Count != 1 {
		t.Fatalf("NoTPU=%+v", e)
	}
	if e := ledger[report.NoContactInfo]; e.Count != 1 {
		t.Fatalf("NoContactInfo=%+v", e)
	}
}

// Package report aggregates probe outcomes into simple and stake-weighted
// distance figures and tallies the nodes that could not be measured.
package report

import (
	"fmt"
	"io"
	"math/big"
	"time"

	"soldist/internal/quicprobe"
)

// Kind classifies why a node was excluded from measurement or failed it.
type Kind int

const (
	ConnectionFailed Kind = iota
	ConnectionError
	NoContactInfo
	NoTPU
	NotAStakedNode
)

var kindNames = map[Kind]string{
	ConnectionFailed: "Connection failed",
	ConnectionError:  "Connection error",
	NoContactInfo:    "No contact info",
	NoTPU:            "No TPU",
	NotAStakedNode:   "Not a staked node",
}

func (k Kind) String() string { return kindNames[k] }

// printOrder fixes the display order of failure tallies.
var printOrder = []Kind{ConnectionFailed, ConnectionError, NoContactInfo, NoTPU, NotAStakedNode}

// Entry counts nodes of one failure kind and the stake they carry.
type Entry struct {
	Count uint64
	Stake uint64
}

// Ledger tallies failures by kind.
type Ledger map[Kind]Entry

func NewLedger() Ledger { return make(Ledger) }

// Record adds one node of the given kind carrying the given stake.
func (l Ledger) Record(k Kind, stake uint64) {
	e := l[k]
	e.Count++
	e.Stake += stake
	l[k] = e
}

// Outcome is one probed target's measurement result.
type Outcome struct {
	RTT   time.Duration
	Stake uint64
	Err   error
}

// Stats holds the aggregated distances. Distances are one-way, in
// microseconds (half the measured round trip).
type Stats struct {
	MeanDistance     int64
	Successes        int
	WeightedDistance int64
	StakeMeasured    uint64
}

// Aggregate folds outcomes into distance statistics, recording failures in
// the ledger. When totalStake is zero the stake-weighted figures stay zero.
func Aggregate(outcomes []Outcome, totalStake uint64, ledger Ledger) Stats {
	var stats Stats
	var sum int64
	weighted := new(big.Int)
	tmp := new(big.Int)

	for _, o := range outcomes {
		if o.Err != nil {
			ledger.Record(ConnectionError, o.Stake)
			continue
		}
		if o.RTT == quicprobe.Unreachable {
			ledger.Record(ConnectionFailed, o.Stake)
			continue
		}
		distance := o.RTT.Microseconds() / 2
		sum += distance
		stats.Successes++
		if totalStake > 0 {
			tmp.SetInt64(distance)
			tmp.Mul(tmp, new(big.Int).SetUint64(o.Stake))
			weighted.Add(weighted, tmp)
			stats.StakeMeasured += o.Stake
		}
	}

	if stats.Successes > 0 {
		stats.MeanDistance = sum / int64(stats.Successes)
	}
	if stats.StakeMeasured > 0 {
		tmp.SetUint64(stats.StakeMeasured)
		weighted.Div(weighted, tmp)
		stats.WeightedDistance = weighted.Int64()
	}
	return stats
}

// Print writes the aggregate report. Stake-weighted lines and stake
// percentages appear only when totalStake is nonzero. The stake line shows
// the stake actually measured, in whole SOL.
func Print(w io.Writer, stats Stats, ledger Ledger, totalStake uint64) {
	if stats.Successes > 0 {
		fmt.Fprintf(w, "Simple distance: %d µs\n", stats.MeanDistance)
		fmt.Fprintf(w, "Connection successful: %d\n", stats.Successes)
		if totalStake > 0 {
			fmt.Fprintf(w, "Stake-weighted distance: %d µs\n", stats.WeightedDistance)
			fmt.Fprintf(w, "Total stake: %d SOL\n", stats.StakeMeasured/1_000_000_000)
		}
	}
	for _, k := range printOrder {
		e, ok := ledger[k]
		if !ok || e.Count == 0 {
			continue
		}
		if totalStake > 0 && k != NotAStakedNode {
			pct := float64(e.Stake) / float64(totalStake) * 100
			fmt.Fprintf(w, "%s: %d (%.2f%% of total stake)\n", k, e.Count, pct)
		} else {
			fmt.Fprintf(w, "%s: %d\n", k, e.Count)
		}
	}
}

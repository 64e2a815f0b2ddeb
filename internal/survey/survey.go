// Package survey fans probe sampling out over a target set and joins the
// per-target results.
package survey

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"golang.org/x/sync/errgroup"

	"soldist/internal/quicprobe"
	"soldist/internal/target"
)

// Result is one target's sampled round trip, or the error that prevented
// sampling it.
type Result struct {
	RTT time.Duration
	Err error
}

// sample is swapped out in tests.
var sample = quicprobe.SampleTarget

// Run probes every target concurrently and returns a result per address.
// limit caps the number of in-flight probes when positive. Temporization is
// applied whenever more than one target is probed, so attempts across
// targets do not land in lockstep.
func Run(ctx context.Context, ep *quicprobe.Endpoint, targets target.Set, attempts, limit int) map[netip.AddrPort]Result {
	addrs := make([]netip.AddrPort, 0, len(targets))
	for addr := range targets {
		addrs = append(addrs, addr)
	}

	temporize := len(addrs) > 1
	results := make([]Result, len(addrs))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, addr := range addrs {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					results[i] = Result{Err: fmt.Errorf("probe panicked: %v", r)}
				}
			}()
			results[i] = Result{RTT: sample(ctx, ep, addr, attempts, temporize)}
			return nil
		})
	}
	g.Wait()

	out := make(map[netip.AddrPort]Result, len(addrs))
	for i, addr := range addrs {
		out[addr] = results[i]
	}
	return out
}

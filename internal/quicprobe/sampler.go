package quicprobe

import (
	"context"
	"math"
	"math/rand/v2"
	"net/netip"
	"time"
)

// Window is one scheduling epoch of the remote node (four 400 ms slots). It
// spaces repeated attempts and bounds each attempt's handshake.
const Window = 4 * 400 * time.Millisecond

// Unreachable marks a target where no attempt completed a handshake.
const Unreachable = time.Duration(math.MaxInt64)

// SampleTarget performs `attempts` timed connection attempts against addr,
// one every Window, and returns the minimum handshake round-trip time, or
// Unreachable if every attempt failed. Spreading attempts across epochs
// gives a good chance that at least one lands while the remote is not busy
// as leader; the minimum approximates best-case latency.
//
// With temporize set, the first attempt is delayed by a uniformly random
// duration in [0, Window) so that concurrent samplers do not all fire at the
// same epoch boundary.
func SampleTarget(ctx context.Context, ep *Endpoint, addr netip.AddrPort, attempts int, temporize bool) time.Duration {
	return sample(attempts, temporize, Window, func() time.Duration {
		return ping(ctx, ep, addr)
	})
}

// sample runs the attempt schedule. Attempt i starts exactly i*window after
// attempt 0's start, regardless of how long earlier attempts took, so the
// cadence never drifts.
func sample(attempts int, temporize bool, window time.Duration, ping func() time.Duration) time.Duration {
	if temporize {
		time.Sleep(rand.N(window))
	}

	start := time.Now()
	best := ping()
	for i := 1; i < attempts; i++ {
		time.Sleep(time.Until(start.Add(time.Duration(i) * window)))
		if rtt := ping(); rtt < best {
			best = rtt
		}
	}
	return best
}

// ping opens one connection, reports how long the handshake took, and closes
// it immediately. Failures and timeouts both come back as Unreachable.
func ping(ctx context.Context, ep *Endpoint, addr netip.AddrPort) time.Duration {
	dialCtx, cancel := context.WithTimeout(ctx, Window)
	defer cancel()

	start := time.Now()
	conn, err := ep.dial(dialCtx, addr)
	if err != nil {
		return Unreachable
	}
	rtt := time.Since(start)
	_ = conn.CloseWithError(0, "")
	return rtt
}

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"soldist/internal/cluster"
	"soldist/internal/config"
	"soldist/internal/doublezero"
	"soldist/internal/identity"
	"soldist/internal/quicprobe"
	"soldist/internal/report"
	"soldist/internal/stunutil"
	"soldist/internal/survey"
	"soldist/internal/target"
)

const usage = `soldist - measure the QUIC distance to the Solana cluster, to Doublezero, or to individual validators

Usage:
  soldist [flags] [destination ...]

Destinations are validator identity pubkeys or TPU ip:port addresses. With
-doublezero, the single optional destination is a Doublezero network name
(default mainnet). With no destinations, the whole cluster is measured.

Flags:
  -config <path>        path to YAML config
  -file <path>          file with one destination per line
  -details              print a line per probed validator
  -count <n>            connection attempts per target, one every 1.6s (default 5)
  -rpc <url>            RPC URL where cluster info is fetched from
  -no-stake-weighting   disable stake-weighting of the average distance
  -doublezero           measure the distance to a Doublezero network
  -port <n>             local UDP port to probe from (default ephemeral)
  -concurrency <n>      cap on concurrent probes (default unlimited)
  -stun <servers>       comma-separated STUN servers for -details public address
  -csv <path>           write per-target results to a CSV file
`

func main() {
	fs := flag.NewFlagSet("soldist", flag.ExitOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	configPath := fs.String("config", "", "")
	filePath := fs.String("file", "", "")
	details := fs.Bool("details", false, "")
	count := fs.Int("count", 0, "")
	rpcURL := fs.String("rpc", "", "")
	noWeighting := fs.Bool("no-stake-weighting", false, "")
	useDoublezero := fs.Bool("doublezero", false, "")
	port := fs.Int("port", 0, "")
	concurrency := fs.Int("concurrency", 0, "")
	stunList := fs.String("stun", "", "")
	csvPath := fs.String("csv", "", "")
	_ = fs.Parse(os.Args[1:])

	cfg, err := loadConfig(*configPath)
	fatal(err)
	overrideConfig(&cfg, *rpcURL, *stunList, *csvPath, *count, *port, *concurrency)
	config.ApplyDefaults(&cfg)
	fatal(config.Validate(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	destinations := fs.Args()
	if *filePath != "" {
		lines, err := readLines(*filePath)
		fatal(err)
		destinations = append(destinations, lines...)
	}

	if *useDoublezero {
		network := "mainnet"
		if len(destinations) > 0 {
			network = destinations[len(destinations)-1]
			destinations = destinations[:len(destinations)-1]
		}
		if len(destinations) > 0 {
			fatal(fmt.Errorf("only one Doublezero network name can be specified"))
		}
		destinations, err = doublezero.Validators(ctx, cfg.DoublezeroURL, network)
		fatal(err)
	}

	nodesCnt := len(destinations)
	var pubkeys []string
	var addrs []netip.AddrPort
	for _, dest := range destinations {
		if addr, err := netip.ParseAddrPort(dest); err == nil {
			addrs = append(addrs, addr)
			continue
		}
		if !identity.IsPubkey(dest) {
			fmt.Fprintf(os.Stderr, "warning: %q is neither an ip:port nor a pubkey\n", dest)
		}
		pubkeys = append(pubkeys, dest)
	}

	// A single destination cannot be meaningfully weighted against itself.
	noWeight := *noWeighting || nodesCnt == 1

	rpc := cluster.NewClient(cfg.RPCURL)
	ledger := report.NewLedger()
	var targets target.Set
	var totalStake uint64

	switch {
	case nodesCnt == 0 && !noWeight:
		nodes, err := rpc.ClusterNodes(ctx)
		fatal(err)
		votes, err := rpc.VoteAccounts(ctx)
		fatal(err)
		targets, totalStake = target.FromCluster(nodes, votes, ledger)
	case nodesCnt == 0:
		nodes, err := rpc.ClusterNodes(ctx)
		fatal(err)
		targets = target.FromClusterUnweighted(nodes, ledger)
	case !noWeight:
		nodes, err := rpc.ClusterNodes(ctx)
		fatal(err)
		votes, err := rpc.VoteAccounts(ctx)
		fatal(err)
		targets, totalStake = target.FromDestinations(pubkeys, addrs, nodes, votes, ledger)
	default:
		nodes, err := rpc.ClusterNodes(ctx)
		fatal(err)
		targets = target.FromDestinationsUnweighted(pubkeys, addrs, nodes, ledger)
	}

	kp, err := identity.NewKeyPair()
	fatal(err)
	cert, err := identity.NewCertificate(kp)
	fatal(err)
	ep, err := quicprobe.NewEndpoint(cert, cfg.ClientPort)
	fatal(err)
	defer ep.Close()

	if *details {
		fmt.Printf("Client identity: %s\n", kp)
		if len(cfg.STUNServers) > 0 {
			if public, err := stunutil.PublicAddr(ctx, cfg.STUNServers, 5*time.Second); err == nil {
				fmt.Printf("Public address: %s\n", public)
			} else {
				fmt.Fprintf(os.Stderr, "warning: STUN discovery failed: %v\n", err)
			}
		}
	}

	results := survey.Run(ctx, ep, targets, cfg.Attempts, cfg.Concurrency)

	sorted := make([]*target.Target, 0, len(targets))
	for _, t := range targets {
		sorted = append(sorted, t)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Addr.String() < sorted[j].Addr.String() })

	outcomes := make([]report.Outcome, 0, len(sorted))
	rows := make([]report.Row, 0, len(sorted))
	for _, t := range sorted {
		res := results[t.Addr]
		outcomes = append(outcomes, report.Outcome{RTT: res.RTT, Stake: t.Stake, Err: res.Err})
		rows = append(rows, report.Row{
			Address:    t.Addr.String(),
			Stake:      t.Stake,
			Identities: t.IDs,
			RTT:        res.RTT,
			Err:        res.Err,
		})
		if *details {
			printDetail(t, res, totalStake)
		}
	}

	stats := report.Aggregate(outcomes, totalStake, ledger)

	if cfg.CSVPath != "" {
		f, err := os.Create(cfg.CSVPath)
		fatal(err)
		err = report.WriteCSV(f, rows)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		fatal(err)
	}

	report.Print(os.Stdout, stats, ledger, totalStake)
}

func printDetail(t *target.Target, res survey.Result, totalStake uint64) {
	if totalStake > 0 {
		fmt.Printf("%-21s %9d SOL %v", t.Addr, t.Stake/1_000_000_000, t.IDs)
	} else {
		fmt.Printf("%-21s %v", t.Addr, t.IDs)
	}
	switch {
	case res.Err != nil:
		fmt.Printf(" Error: %v\n", res.Err)
	case res.RTT == quicprobe.Unreachable:
		fmt.Println(" Failed")
	default:
		fmt.Printf(" %d µs\n", res.RTT.Microseconds()/2)
	}
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Config{}, nil
	}
	return config.Load(path)
}

func overrideConfig(cfg *config.Config, rpcURL, stunList, csvPath string, count, port, concurrency int) {
	if rpcURL != "" {
		cfg.RPCURL = rpcURL
	}
	if stunList != "" {
		cfg.STUNServers = splitList(stunList)
	}
	if csvPath != "" {
		cfg.CSVPath = csvPath
	}
	if count != 0 {
		cfg.Attempts = count
	}
	if port != 0 {
		cfg.ClientPort = port
	}
	if concurrency != 0 {
		cfg.Concurrency = concurrency
	}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func fatal(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

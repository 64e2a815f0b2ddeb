package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"soldist/internal/quicprobe"
)

// Row is one probed target's result for CSV export.
type Row struct {
	Address    string
	Stake      uint64
	Identities []string
	RTT        time.Duration
	Err        error
}

// WriteCSV writes per-target results to CSV with a fixed column order.
func WriteCSV(w io.Writer, rows []Row) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{
		"address",
		"stake_lamports",
		"identities",
		"rtt_us",
		"distance_us",
		"status",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		rtt, distance, status := "", "", "ok"
		switch {
		case r.Err != nil:
			status = "error"
		case r.RTT == quicprobe.Unreachable:
			status = "failed"
		default:
			rtt = strconv.FormatInt(r.RTT.Microseconds(), 10)
			distance = strconv.FormatInt(r.RTT.Microseconds()/2, 10)
		}
		record := []string{
			r.Address,
			strconv.FormatUint(r.Stake, 10),
			strings.Join(r.Identities, ";"),
			rtt,
			distance,
			status,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

// Package cluster queries the cluster directory RPC for node contact info
// and vote account stakes.
package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ContactInfo is one gossip node as reported by getClusterNodes. TPUQUIC is
// empty when the node publishes no QUIC TPU address.
type ContactInfo struct {
	Pubkey  string `json:"pubkey"`
	Gossip  string `json:"gossip"`
	TPUQUIC string `json:"tpuQuic"`
}

// VoteAccount is one current vote account as reported by getVoteAccounts.
type VoteAccount struct {
	VotePubkey     string `json:"votePubkey"`
	NodePubkey     string `json:"nodePubkey"`
	ActivatedStake uint64 `json:"activatedStake"`
}

// Client is a thin JSON-RPC client for the cluster directory.
type Client struct {
	url  string
	http *http.Client
}

// NewClient creates a client for the given RPC URL.
func NewClient(url string) *Client {
	return &Client{
		url: url,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ClusterNodes fetches contact info for every node in the cluster.
func (c *Client) ClusterNodes(ctx context.Context) ([]ContactInfo, error) {
	var nodes []ContactInfo
	if err := c.call(ctx, "getClusterNodes", &nodes); err != nil {
		return nil, fmt.Errorf("get cluster nodes: %w", err)
	}
	return nodes, nil
}

// VoteAccounts fetches the current (non-delinquent) vote accounts.
func (c *Client) VoteAccounts(ctx context.Context) ([]VoteAccount, error) {
	var result struct {
		Current []VoteAccount `json:"current"`
	}
	if err := c.call(ctx, "getVoteAccounts", &result); err != nil {
		return nil, fmt.Errorf("get vote accounts: %w", err)
	}
	return result.Current, nil
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Client) call(ctx context.Context, method string, out any) error {
	payload, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		msg := strings.TrimSpace(string(body))
		if msg != "" {
			return fmt.Errorf("request failed: %s: %s", res.Status, msg)
		}
		return fmt.Errorf("request failed: %s", res.Status)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return err
	}
	if envelope.Error != nil {
		return fmt.Errorf("rpc error %d: %s", envelope.Error.Code, envelope.Error.Message)
	}

	return json.Unmarshal(envelope.Result, out)
}

package cluster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClusterNodes_ParsesNullTPU(t *testing.T) {
	t.Parallel()

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["method"] != "getClusterNodes" {
			t.Errorf("method=%v", req["method"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":[
			{"pubkey":"A","gossip":"10.0.0.1:8000","tpuQuic":"10.0.0.1:8009"},
			{"pubkey":"B","gossip":"10.0.0.2:8000","tpuQuic":null}
		]}`))
	}))
	defer s.Close()

	nodes, err := NewClient(s.URL).ClusterNodes(context.Background())
	if err != nil {
		t.Fatalf("ClusterNodes: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("nodes=%d", len(nodes))
	}
	if nodes[0].TPUQUIC != "10.0.0.1:8009" {
		t.Fatalf("tpu_quic=%q", nodes[0].TPUQUIC)
	}
	if nodes[1].TPUQUIC != "" {
		t.Fatalf("null tpu_quic=%q", nodes[1].TPUQUIC)
	}
}

func TestVoteAccounts_CurrentOnly(t *testing.T) {
	t.Parallel()

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{
			"current":[{"votePubkey":"V","nodePubkey":"A","activatedStake":1000000000}],
			"delinquent":[{"votePubkey":"W","nodePubkey":"B","activatedStake":5}]
		}}`))
	}))
	defer s.Close()

	votes, err := NewClient(s.URL).VoteAccounts(context.Background())
	if err != nil {
		t.Fatalf("VoteAccounts: %v", err)
	}
	if len(votes) != 1 {
		t.Fatalf("votes=%d", len(votes))
	}
	if votes[0].NodePubkey != "A" || votes[0].ActivatedStake != 1000000000 {
		t.Fatalf("vote=%+v", votes[0])
	}
}

func TestCall_RPCError(t *testing.T) {
	t.Parallel()

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`))
	}))
	defer s.Close()

	_, err := NewClient(s.URL).ClusterNodes(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "method not found") {
		t.Fatalf("error=%q", err)
	}
}

func TestCall_ErrorIncludesBody(t *testing.T) {
	t.Parallel()

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`rate limited`))
	}))
	defer s.Close()

	_, err := NewClient(s.URL).VoteAccounts(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("error=%q", err)
	}
}

// Package doublezero resolves a Doublezero network name to the validator
// identities connected to it, via the public Doublezero HTTP API.
package doublezero

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type response struct {
	Success bool `json:"success"`
	Data    struct {
		Validators []struct {
			Account string `json:"account"`
		} `json:"validators"`
	} `json:"data"`
}

// Validators fetches the identity pubkeys of all validators on the named
// Doublezero network.
func Validators(ctx context.Context, baseURL, network string) ([]string, error) {
	endpoint := baseURL + "/api/dz-validators?network=" + url.QueryEscape(network)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 30 * time.Second}
	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		msg := strings.TrimSpace(string(body))
		if msg != "" {
			return nil, fmt.Errorf("request failed: %s: %s", res.Status, msg)
		}
		return nil, fmt.Errorf("request failed: %s", res.Status)
	}

	var parsed response
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !parsed.Success {
		return nil, errors.New("api reported failure")
	}

	accounts := make([]string, 0, len(parsed.Data.Validators))
	for _, v := range parsed.Data.Validators {
		if v.Account == "" {
			return nil, errors.New("validator entry missing account")
		}
		accounts = append(accounts, v.Account)
	}
	if len(accounts) == 0 {
		return nil, errors.New("no validators")
	}
	return accounts, nil
}

package votes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// pollInterval mirrors the cadence of the teacher's mempool poller,
// slowed down for a webhook-indexer API rather than a local node.
const pollInterval = 15 * time.Second

// heliusPageSize is the max page size Helius' enhanced-transactions
// endpoint accepts per request.
const heliusPageSize = 100

// Poller periodically fetches new transactions for the prize wallet via
// a Helius-compatible enhanced-transactions HTTP API and feeds each one
// through an Ingestor. Structured the way the teacher's mempool Poller
// ticks a fixed interval and tracks a seen-set, generalized from a
// local RPC poll to a REST poll. Each poll requests a single page of the
// wallet's most recent heliusPageSize transactions; older pages are not
// fetched and no signature cursor is kept.
type Poller struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	prizeWallet string
	ingestor   *Ingestor
	seen       map[string]bool
}

func NewPoller(ingestor *Ingestor, baseURL, apiKey, prizeWallet string) *Poller {
	return &Poller{
		httpClient:  &http.Client{Timeout: 25 * time.Second},
		baseURL:     baseURL,
		apiKey:      apiKey,
		prizeWallet: prizeWallet,
		ingestor:    ingestor,
		seen:        make(map[string]bool),
	}
}

// Run polls on a fixed interval until ctx is cancelled, logging and
// continuing past individual fetch/process failures so one bad page
// doesn't stop later polls — the same posture as the teacher's poller
// logging mempool fetch errors and continuing the loop.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	cleanup := time.NewTicker(time.Hour)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanup.C:
			p.seen = make(map[string]bool)
		case <-ticker.C:
			if err := p.pollOnce(ctx); err != nil {
				log.Printf("votes: poll failed: %v", err)
			}
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) error {
	txs, err := p.fetchRecentTransactions(ctx)
	if err != nil {
		return err
	}
	for _, tx := range txs {
		if p.seen[tx.Signature] {
			continue
		}
		p.seen[tx.Signature] = true
		if !touchesWallet(tx, p.prizeWallet) {
			continue
		}
		if _, err := p.ingestor.ProcessTransaction(ctx, tx); err != nil {
			log.Printf("votes: failed to process tx %s: %v", tx.Signature, err)
		}
	}
	return nil
}

// touchesWallet reports whether any transfer in tx moves value into or
// out of the wallet, per §4.10's "event touches the wallet" gate
// (shared in spirit with the Prize Pool Watcher's refresh condition).
func touchesWallet(tx Transaction, wallet string) bool {
	for _, t := range tx.TokenTransfers {
		if t.ToUserAccount == wallet || t.FromUserAccount == wallet {
			return true
		}
	}
	for _, t := range tx.NativeTransfers {
		if t.ToUserAccount == wallet || t.FromUserAccount == wallet {
			return true
		}
	}
	return false
}

func (p *Poller) fetchRecentTransactions(ctx context.Context) ([]Transaction, error) {
	q := url.Values{}
	q.Set("api-key", p.apiKey)
	q.Set("limit", fmt.Sprintf("%d", heliusPageSize))
	reqURL := fmt.Sprintf("%s/addresses/%s/transactions?%s", p.baseURL, p.prizeWallet, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("votes: helius API returned %d: %s", resp.StatusCode, string(body))
	}

	var txs []Transaction
	if err := json.Unmarshal(body, &txs); err != nil {
		return nil, fmt.Errorf("votes: failed to decode helius response: %w", err)
	}
	return txs, nil
}

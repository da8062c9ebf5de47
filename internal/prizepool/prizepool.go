// Package prizepool implements the Prize Pool Watcher (C10): an
// in-memory snapshot of the prize wallet's holdings, refreshed from an
// outbound transaction-stream subscription and broadcast to WebSocket
// subscribers on every change. The reconnect loop and broadcast wiring
// are grounded on the teacher's mempool Poller and its Hub
// (internal/api/websocket.go), generalized from an inbound HTTP poll +
// local hub push to an outbound websocket subscription with the same
// "keep retrying on disconnect, broadcast full state" shape.
package prizepool

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"
)

// reconnectInterval is the fixed backoff §4.10 specifies: no
// exponential growth, just retry every 5 seconds while the process is
// running.
const reconnectInterval = 5 * time.Second

// Broadcaster is the minimal surface the Watcher needs from a websocket
// hub; satisfied by *internal/api.Hub without prizepool importing api
// (api imports prizepool to wire the /ws/prize-pool route, so the
// dependency can only run one direction).
type Broadcaster interface {
	Broadcast(data []byte)
}

// TokenHolding is one line of the wallet's token breakdown.
type TokenHolding struct {
	Mint     string  `json:"mint"`
	Amount   float64 `json:"amount"`
	Decimals int     `json:"decimals"`
	LogoURI  string  `json:"logo_uri,omitempty"`
}

// Contribution is a recent inbound transfer shown in the snapshot feed.
type Contribution struct {
	TxSignature string    `json:"tx_signature"`
	Wallet      string    `json:"wallet"`
	Symbol      string    `json:"symbol"`
	Amount      float64   `json:"amount"`
	Timestamp   time.Time `json:"timestamp"`
}

// Snapshot is the full wallet state broadcast to every subscriber —
// clients never receive incremental deltas, per §4.10.
type Snapshot struct {
	TotalNative         float64                 `json:"total_native"`
	TargetNative        float64                 `json:"target_native"`
	TokenBreakdown      map[string]TokenHolding `json:"token_breakdown"`
	TokenOrder          []string                `json:"token_order"`
	RecentContributions []Contribution          `json:"recent_contributions"`
}

const maxRecentContributions = 25

// Watcher maintains the snapshot and pushes it to a Broadcaster on
// every observed change.
type Watcher struct {
	httpClient  *http.Client
	assetURL    string
	streamURL   string
	wallet      string
	governance  string
	reserve     string
	broadcaster Broadcaster

	mu       sync.RWMutex
	snapshot Snapshot
}

func New(assetURL, streamURL, wallet, governanceMint, reserveStableMint string, broadcaster Broadcaster) *Watcher {
	return &Watcher{
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		assetURL:    assetURL,
		streamURL:   streamURL,
		wallet:      wallet,
		governance:  governanceMint,
		reserve:     reserveStableMint,
		broadcaster: broadcaster,
		snapshot:    Snapshot{TokenBreakdown: map[string]TokenHolding{}},
	}
}

// Snapshot returns a copy of the current in-memory state.
func (w *Watcher) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	cp := w.snapshot
	cp.TokenBreakdown = make(map[string]TokenHolding, len(w.snapshot.TokenBreakdown))
	for k, v := range w.snapshot.TokenBreakdown {
		cp.TokenBreakdown[k] = v
	}
	cp.RecentContributions = append([]Contribution(nil), w.snapshot.RecentContributions...)
	return cp
}

// assetIndexResponse is the subset of the asset-index API's response
// shape the watcher needs on startup.
type assetIndexResponse struct {
	NativeBalance float64 `json:"native_balance"`
	Tokens        []struct {
		Mint     string  `json:"mint"`
		Symbol   string  `json:"symbol"`
		Amount   float64 `json:"amount"`
		Decimals int     `json:"decimals"`
		LogoURI  string  `json:"logo_uri"`
	} `json:"tokens"`
}

// Start fetches the initial snapshot once, then runs the reconnecting
// stream subscription until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.fetchInitial(ctx); err != nil {
		log.Printf("prizepool: initial fetch failed, starting with an empty snapshot: %v", err)
	}
	go w.runStream(ctx)
	return nil
}

func (w *Watcher) fetchInitial(ctx context.Context) error {
	reqURL := fmt.Sprintf("%s/addresses/%s/balances", w.assetURL, w.wallet)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("asset index returned %d", resp.StatusCode)
	}

	var parsed assetIndexResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("prizepool: failed to decode asset index response: %w", err)
	}

	breakdown := make(map[string]TokenHolding, len(parsed.Tokens))
	for _, t := range parsed.Tokens {
		breakdown[t.Symbol] = TokenHolding{Mint: t.Mint, Amount: t.Amount, Decimals: t.Decimals, LogoURI: t.LogoURI}
	}

	w.mu.Lock()
	w.snapshot.TotalNative = parsed.NativeBalance
	w.snapshot.TokenBreakdown = breakdown
	w.snapshot.TokenOrder = w.sortTokens(breakdown)
	w.mu.Unlock()

	w.publish()
	return nil
}

// sortTokens implements §4.10's fixed display order for the token
// breakdown: the governance mint, then the reserve-stable mint, then
// everything else by amount descending. The native balance is not in
// this list; the snapshot reports it separately as TotalNative.
func (w *Watcher) sortTokens(breakdown map[string]TokenHolding) []string {
	symbols := make([]string, 0, len(breakdown))
	for sym := range breakdown {
		symbols = append(symbols, sym)
	}
	sort.Slice(symbols, func(i, j int) bool {
		ri, rj := w.tokenRank(breakdown[symbols[i]].Mint), w.tokenRank(breakdown[symbols[j]].Mint)
		if ri != rj {
			return ri < rj
		}
		return breakdown[symbols[i]].Amount > breakdown[symbols[j]].Amount
	})
	return symbols
}

func (w *Watcher) tokenRank(mint string) int {
	switch mint {
	case w.governance:
		return 0
	case w.reserve:
		return 1
	default:
		return 2
	}
}

// streamEvent is the subset of the upstream transaction-stream message
// shape the watcher inspects to decide whether a refresh is needed.
type streamEvent struct {
	TokenTransfers []struct {
		Mint            string  `json:"mint"`
		ToUserAccount   string  `json:"toUserAccount"`
		FromUserAccount string  `json:"fromUserAccount"`
		TokenAmount     float64 `json:"tokenAmount"`
	} `json:"tokenTransfers"`
	NativeTransfers []struct {
		ToUserAccount   string `json:"toUserAccount"`
		FromUserAccount string `json:"fromUserAccount"`
		Amount          int64  `json:"amount"`
	} `json:"nativeTransfers"`
	Signature string `json:"signature"`
}

func (w *Watcher) touchesWallet(ev streamEvent) bool {
	for _, t := range ev.TokenTransfers {
		if t.ToUserAccount == w.wallet || t.FromUserAccount == w.wallet {
			return true
		}
	}
	for _, t := range ev.NativeTransfers {
		if t.ToUserAccount == w.wallet || t.FromUserAccount == w.wallet {
			return true
		}
	}
	return false
}

// runStream holds an outbound websocket connection to the upstream
// stream, reconnecting on a fixed interval per §4.10's reconnect
// policy, using cenkalti/backoff's constant policy rather than its
// exponential one to get that fixed cadence without hand-rolling a
// retry loop.
func (w *Watcher) runStream(ctx context.Context) {
	policy := backoff.WithContext(backoff.NewConstantBackOff(reconnectInterval), ctx)
	for {
		if ctx.Err() != nil {
			return
		}
		err := backoff.Retry(func() error {
			return w.connectAndConsume(ctx)
		}, policy)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("prizepool: stream connection ended: %v, reconnecting in %s", err, reconnectInterval)
		}
	}
}

func (w *Watcher) connectAndConsume(ctx context.Context) error {
	if w.streamURL == "" {
		return fmt.Errorf("prizepool: no wallet stream url configured")
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.streamURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Printf("prizepool: connected to wallet stream")
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ev streamEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			log.Printf("prizepool: failed to decode stream event: %v", err)
			continue
		}
		if !w.touchesWallet(ev) {
			continue
		}
		if err := w.fetchInitial(ctx); err != nil {
			log.Printf("prizepool: refresh after event %s failed: %v", ev.Signature, err)
			continue
		}
	}
}

func (w *Watcher) publish() {
	if w.broadcaster == nil {
		return
	}
	snap := w.Snapshot()
	payload, err := json.Marshal(map[string]any{"type": "prize_pool_snapshot", "snapshot": snap})
	if err != nil {
		log.Printf("prizepool: failed to marshal snapshot for broadcast: %v", err)
		return
	}
	w.broadcaster.Broadcast(payload)
}

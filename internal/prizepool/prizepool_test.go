package prizepool

import "testing"

func TestTokenRankOrdersGovernanceThenReserveThenOther(t *testing.T) {
	w := New("", "", "wallet", "gov-mint", "reserve-mint", nil)
	if got := w.tokenRank("gov-mint"); got != 0 {
		t.Errorf("tokenRank(governance) = %d, want 0", got)
	}
	if got := w.tokenRank("reserve-mint"); got != 1 {
		t.Errorf("tokenRank(reserve) = %d, want 1", got)
	}
	if got := w.tokenRank("anything-else"); got != 2 {
		t.Errorf("tokenRank(other) = %d, want 2", got)
	}
}

func TestSortTokensOrdersByRankThenAmountDescending(t *testing.T) {
	w := New("", "", "wallet", "gov-mint", "reserve-mint", nil)
	breakdown := map[string]TokenHolding{
		"SMALL": {Mint: "other-1", Amount: 5},
		"BIG":   {Mint: "other-2", Amount: 500},
		"RSRV":  {Mint: "reserve-mint", Amount: 1},
		"GOV":   {Mint: "gov-mint", Amount: 1},
	}

	order := w.sortTokens(breakdown)
	want := []string{"GOV", "RSRV", "BIG", "SMALL"}
	if len(order) != len(want) {
		t.Fatalf("sortTokens returned %v, want %v", order, want)
	}
	for i, sym := range want {
		if order[i] != sym {
			t.Errorf("sortTokens()[%d] = %q, want %q (full: %v)", i, order[i], sym, order)
		}
	}
}

func TestTouchesWalletDetectsTokenTransfer(t *testing.T) {
	w := New("", "", "wallet-addr", "gov-mint", "reserve-mint", nil)
	ev := streamEvent{TokenTransfers: []struct {
		Mint            string  `json:"mint"`
		ToUserAccount   string  `json:"toUserAccount"`
		FromUserAccount string  `json:"fromUserAccount"`
		TokenAmount     float64 `json:"tokenAmount"`
	}{{ToUserAccount: "wallet-addr"}}}
	if !w.touchesWallet(ev) {
		t.Error("expected event touching wallet to be detected")
	}
}

func TestTouchesWalletIgnoresUnrelatedEvent(t *testing.T) {
	w := New("", "", "wallet-addr", "gov-mint", "reserve-mint", nil)
	ev := streamEvent{NativeTransfers: []struct {
		ToUserAccount   string `json:"toUserAccount"`
		FromUserAccount string `json:"fromUserAccount"`
		Amount          int64  `json:"amount"`
	}{{ToUserAccount: "someone-else", FromUserAccount: "someone-else-too"}}}
	if w.touchesWallet(ev) {
		t.Error("expected unrelated event to not touch wallet")
	}
}

type recordingBroadcaster struct {
	calls [][]byte
}

func (r *recordingBroadcaster) Broadcast(data []byte) {
	r.calls = append(r.calls, data)
}

func TestPublishSkipsWhenNoBroadcasterConfigured(t *testing.T) {
	w := New("", "", "wallet", "gov-mint", "reserve-mint", nil)
	w.publish() // must not panic with a nil broadcaster
}

func TestPublishSendsSnapshotToBroadcaster(t *testing.T) {
	rec := &recordingBroadcaster{}
	w := New("", "", "wallet", "gov-mint", "reserve-mint", rec)
	w.publish()
	if len(rec.calls) != 1 {
		t.Fatalf("expected exactly one broadcast call, got %d", len(rec.calls))
	}
}

func TestSnapshotReturnsIndependentCopy(t *testing.T) {
	w := New("", "", "wallet", "gov-mint", "reserve-mint", nil)
	w.mu.Lock()
	w.snapshot.TokenBreakdown["X"] = TokenHolding{Mint: "x-mint", Amount: 1}
	w.mu.Unlock()

	snap := w.Snapshot()
	snap.TokenBreakdown["X"] = TokenHolding{Mint: "x-mint", Amount: 999}

	again := w.Snapshot()
	if again.TokenBreakdown["X"].Amount != 1 {
		t.Errorf("mutating a Snapshot() copy leaked into internal state: got %v, want 1", again.TokenBreakdown["X"].Amount)
	}
}

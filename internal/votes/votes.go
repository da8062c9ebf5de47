// Package votes implements the Vote Ingestor (C9): decodes memo-tagged
// token transfers into the prize wallet, splits each transaction's
// amount across a vote and an overflow donation at a configurable cap,
// and computes the on-demand community score. Memo extraction and the
// submission-id pattern are grounded on the original collect_votes.py
// script (original_source); idempotent insertion reuses the
// Store's ErrDuplicateTxSignature machinery.
package votes

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"github.com/clanktank/judge-engine/internal/store"
	"github.com/clanktank/judge-engine/pkg/models"
)

// memoProgramID is Solana's standard Memo program address.
const memoProgramID = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"

// submissionIDPattern is the memo validity check from §4.9 step 2.
var submissionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{5,80}$`)

// TokenTransfer mirrors Helius's enhanced-transaction tokenTransfers
// entry shape.
type TokenTransfer struct {
	Mint            string  `json:"mint"`
	FromUserAccount string  `json:"fromUserAccount"`
	ToUserAccount   string  `json:"toUserAccount"`
	TokenAmount     float64 `json:"tokenAmount"`
}

// NativeTransfer mirrors Helius's enhanced-transaction nativeTransfers
// entry shape (lamports).
type NativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          int64  `json:"amount"`
}

// Instruction mirrors one parsed instruction within an enhanced
// transaction — used by the memo fallback scan.
type Instruction struct {
	ProgramID string `json:"programId"`
	Data      string `json:"data"`
	Parsed    *struct {
		Info struct {
			Memo string `json:"memo"`
		} `json:"info"`
	} `json:"parsed,omitempty"`
}

// Transaction is the subset of Helius's enhanced-transaction webhook
// payload the ingestor needs.
type Transaction struct {
	Signature       string           `json:"signature"`
	Timestamp       int64            `json:"timestamp"`
	FeePayer        string           `json:"feePayer"`
	Memo            string           `json:"memo,omitempty"`
	Memos           []string         `json:"memos,omitempty"`
	Description     string           `json:"description,omitempty"`
	TokenTransfers  []TokenTransfer  `json:"tokenTransfers"`
	NativeTransfers []NativeTransfer `json:"nativeTransfers"`
	Instructions    []Instruction    `json:"instructions"`
}

var descriptionMemoPattern = regexp.MustCompile(`(?i)memo[:\s]+"([^"]+)"`)

// ExtractMemo implements §4.9 step 1's fallback chain: top-level memos
// array, top-level memo field, a memo-shaped snippet in the human
// description, then a scan of the instruction list for the memo
// program (base58-decoded, then base64-decoded, falling back to the raw
// instruction data string) or a parsed memo in an instruction's info.
func ExtractMemo(tx Transaction) string {
	if len(tx.Memos) > 0 && strings.TrimSpace(tx.Memos[0]) != "" {
		return strings.TrimSpace(tx.Memos[0])
	}
	if strings.TrimSpace(tx.Memo) != "" {
		return strings.TrimSpace(tx.Memo)
	}
	if m := descriptionMemoPattern.FindStringSubmatch(tx.Description); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	for _, ins := range tx.Instructions {
		if ins.ProgramID == memoProgramID && ins.Data != "" {
			if decoded, err := base58.Decode(ins.Data); err == nil && isPrintableUTF8(decoded) {
				return strings.TrimSpace(string(decoded))
			}
			if decoded, err := base64.StdEncoding.DecodeString(ins.Data); err == nil && isPrintableUTF8(decoded) {
				return strings.TrimSpace(string(decoded))
			}
			return strings.TrimSpace(ins.Data)
		}
		if ins.Parsed != nil && ins.Parsed.Info.Memo != "" {
			return strings.TrimSpace(ins.Parsed.Info.Memo)
		}
	}
	return ""
}

func isPrintableUTF8(b []byte) bool {
	for _, r := range string(b) {
		if r == '�' {
			return false
		}
	}
	return len(b) > 0
}

// IsSubmissionIDMemo implements §4.9 step 2.
func IsSubmissionIDMemo(memo string) bool {
	return submissionIDPattern.MatchString(memo)
}

// ExtractSender implements §4.9 step 3: the sender of whichever
// transfer landed in the prize wallet, falling back to the
// transaction's fee payer.
func ExtractSender(tx Transaction, prizeWallet string) string {
	for _, t := range tx.TokenTransfers {
		if t.ToUserAccount == prizeWallet && t.FromUserAccount != "" {
			return t.FromUserAccount
		}
	}
	for _, t := range tx.NativeTransfers {
		if t.ToUserAccount == prizeWallet && t.FromUserAccount != "" {
			return t.FromUserAccount
		}
	}
	return tx.FeePayer
}

// governanceTransferAmount returns the amount of the governance-mint
// transfer into the prize wallet, or 0 with ok=false if this
// transaction carries none.
func governanceTransferAmount(tx Transaction, prizeWallet, governanceMint string) (float64, bool) {
	for _, t := range tx.TokenTransfers {
		if t.ToUserAccount == prizeWallet && t.Mint == governanceMint {
			return t.TokenAmount, true
		}
	}
	return 0, false
}

// Ingestor processes decoded Solana transactions into votes and
// overflow contributions.
type Ingestor struct {
	store          *store.Store
	registry       *Registry
	prizeWallet    string
	governanceMint string
	voteCap        float64
}

func NewIngestor(st *store.Store, reg *Registry, prizeWallet, governanceMint string, voteCap float64) *Ingestor {
	return &Ingestor{store: st, registry: reg, prizeWallet: prizeWallet, governanceMint: governanceMint, voteCap: voteCap}
}

// Outcome reports how ProcessTransaction disposed of one transaction,
// for caller-side logging/stats.
type Outcome string

const (
	OutcomeVote            Outcome = "vote"
	OutcomeVoteWithOverflow Outcome = "vote_with_overflow"
	OutcomeDonation         Outcome = "donation"
	OutcomeIgnoredNoMemo    Outcome = "ignored_no_memo"
	OutcomeIgnoredNonHolder Outcome = "ignored_non_holder"
	OutcomeDuplicate        Outcome = "duplicate"
)

// ProcessTransaction runs the full §4.9 pipeline for one transaction
// already known to touch the prize wallet.
func (in *Ingestor) ProcessTransaction(ctx context.Context, tx Transaction) (Outcome, error) {
	exists, err := in.store.VoteExists(ctx, tx.Signature)
	if err != nil {
		return "", fmt.Errorf("votes: failed to check existing tx %s: %w", tx.Signature, err)
	}
	if exists {
		return OutcomeDuplicate, nil
	}

	amount, isGovernanceTransfer := governanceTransferAmount(tx, in.prizeWallet, in.governanceMint)
	if !isGovernanceTransfer {
		return in.processDonation(ctx, tx)
	}

	memo := ExtractMemo(tx)
	if !IsSubmissionIDMemo(memo) {
		return OutcomeIgnoredNoMemo, nil
	}

	sender := ExtractSender(tx, in.prizeWallet)
	if in.registry != nil && !in.registry.IsHolder(sender) {
		return OutcomeIgnoredNonHolder, nil
	}

	return in.recordVote(ctx, tx, memo, sender, amount)
}

func (in *Ingestor) recordVote(ctx context.Context, tx Transaction, submissionID, sender string, amount float64) (Outcome, error) {
	voteAmount := amount
	overflow := 0.0
	if in.voteCap > 0 && amount > in.voteCap {
		voteAmount = in.voteCap
		overflow = amount - in.voteCap
	}

	ts := txTimestamp(tx)
	if err := in.store.InsertVote(ctx, models.Vote{
		TxSignature:   tx.Signature,
		SubmissionID:  submissionID,
		SenderAddress: sender,
		Amount:        voteAmount,
		Timestamp:     ts,
	}); err != nil && err != store.ErrDuplicateTxSignature {
		return "", fmt.Errorf("votes: failed to insert vote %s: %w", tx.Signature, err)
	}

	if overflow <= 0 {
		return OutcomeVote, nil
	}

	if err := in.store.InsertContribution(ctx, models.PrizePoolContribution{
		TxSignature:       tx.Signature + "-overflow",
		TokenMint:         in.governanceMint,
		ContributorWallet: sender,
		Amount:            overflow,
		Source:            models.SourceVoteOverflow,
		Timestamp:         ts,
	}); err != nil {
		return "", fmt.Errorf("votes: failed to insert overflow contribution for %s: %w", tx.Signature, err)
	}
	return OutcomeVoteWithOverflow, nil
}

func txTimestamp(tx Transaction) time.Time {
	if tx.Timestamp <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(tx.Timestamp, 0).UTC()
}

func (in *Ingestor) processDonation(ctx context.Context, tx Transaction) (Outcome, error) {
	var amount float64
	var mint string
	for _, t := range tx.TokenTransfers {
		if t.ToUserAccount == in.prizeWallet {
			amount, mint = t.TokenAmount, t.Mint
			break
		}
	}
	if amount == 0 {
		for _, t := range tx.NativeTransfers {
			if t.ToUserAccount == in.prizeWallet {
				amount, mint = float64(t.Amount), "native"
				break
			}
		}
	}
	if amount == 0 {
		return OutcomeIgnoredNoMemo, nil
	}

	sender := ExtractSender(tx, in.prizeWallet)
	if err := in.store.InsertContribution(ctx, models.PrizePoolContribution{
		TxSignature:       tx.Signature,
		TokenMint:         mint,
		ContributorWallet: sender,
		Amount:            amount,
		Source:            models.SourceDirectDonation,
		Timestamp:         txTimestamp(tx),
	}); err != nil {
		return "", fmt.Errorf("votes: failed to insert donation contribution for %s: %w", tx.Signature, err)
	}
	return OutcomeDonation, nil
}

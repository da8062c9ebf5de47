package models

import "time"

// Vote is an on-chain contribution tagged to a submission via a memo.
// Duplicate TxSignature values are rejected at insert — this is the
// idempotency boundary for webhook replay and cross-instance ingestion.
type Vote struct {
	TxSignature    string    `json:"tx_signature"`
	SubmissionID   string    `json:"submission_id"`
	SenderAddress  string    `json:"sender_address"`
	Amount         float64   `json:"amount"`
	Timestamp      time.Time `json:"timestamp"`
}

// ContributionSource distinguishes how a PrizePoolContribution arose.
type ContributionSource string

const (
	SourceVoteOverflow   ContributionSource = "vote_overflow"
	SourceDirectDonation ContributionSource = "direct_donation"
	SourceRealBalance    ContributionSource = "real_balance"
)

// PrizePoolContribution is any token flow into the prize wallet that
// isn't (fully) counted as a vote: the overflow past the per-transaction
// vote cap, a direct donation, or an observed-balance reconciliation
// entry. Overflow contributions reuse the originating tx signature with
// a "-overflow" suffix so the unique index still protects against
// double-insertion on replay.
type PrizePoolContribution struct {
	TxSignature       string             `json:"tx_signature"`
	TokenMint         string             `json:"token_mint"`
	TokenSymbol       string             `json:"token_symbol"`
	Amount            float64            `json:"amount"`
	ContributorWallet string             `json:"contributor_wallet"`
	Source            ContributionSource `json:"source"`
	Timestamp         time.Time          `json:"timestamp"`
}

// TokenMetadata caches on-chain asset descriptors, refreshed on a 24h TTL.
type TokenMetadata struct {
	Mint        string    `json:"mint"`
	Symbol      string    `json:"symbol"`
	Name        string    `json:"name"`
	Decimals    int       `json:"decimals"`
	LogoURI     string    `json:"logo_uri,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// TokenMetadataTTL is the cache lifetime for TokenMetadata entries.
const TokenMetadataTTL = 24 * time.Hour

// Holder is one entry of the external ground-truth wallet->balance map.
// QuadraticWeight dampens whale influence: sqrt(balance).
type Holder struct {
	Address string  `json:"address"`
	Balance float64 `json:"balance"`
}

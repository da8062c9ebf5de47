package votes

import (
	"math"

	"github.com/clanktank/judge-engine/pkg/models"
)

// senderWeightMultiplier and senderWeightCap are the constants behind
// §4.9's "per-sender vote weight = log10(total+1)·3, capped at 10".
const (
	senderWeightMultiplier = 3.0
	senderWeightCap        = 10.0
)

// SenderWeight computes one sender's vote weight from their total
// amount contributed to a submission, per §4.9's community score spec.
func SenderWeight(totalAmount float64) float64 {
	w := math.Log10(totalAmount+1) * senderWeightMultiplier
	if w > senderWeightCap {
		return senderWeightCap
	}
	return w
}

// CommunityScore computes a submission's on-demand community score
// from its recorded votes, per §4.9: group by sender, sum per-sender
// amounts, combine into a raw weight (a registered holder adds their
// summed vote amount as-is; any other sender, or every sender when no
// registry is configured, adds SenderWeight of their total), then
// compress the result to [0,10]. The registry's QuadraticWeight is not
// used here.
func CommunityScore(votes []models.Vote, reg *Registry) float64 {
	totals := make(map[string]float64, len(votes))
	for _, v := range votes {
		totals[v.SenderAddress] += v.Amount
	}
	if len(totals) == 0 {
		return 0
	}

	var rawWeight float64
	for sender, total := range totals {
		if reg != nil && reg.IsHolder(sender) {
			// Holder eligibility is already enforced upstream by the
			// Ingestor (non-holders never reach this point when a
			// registry is configured). Per §8 scenario 4, a holder's raw
			// contribution here is the vote amount itself.
			rawWeight += total
			continue
		}
		rawWeight += SenderWeight(total)
	}
	if rawWeight <= 0 {
		return 0
	}
	return math.Min(math.Log10(rawWeight+1)*2, 10)
}

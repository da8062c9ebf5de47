package votes

import (
	"encoding/base64"
	"math"
	"testing"

	"github.com/mr-tron/base58"

	"github.com/clanktank/judge-engine/pkg/models"
)

const testWallet = "2K1reedtyDUQigdaLoHLEyugkH88iVGNE2BQemiGx6xf"

func TestExtractMemoTopLevelMemosArray(t *testing.T) {
	tx := Transaction{Memos: []string{"abc12345"}}
	if got := ExtractMemo(tx); got != "abc12345" {
		t.Errorf("ExtractMemo = %q, want abc12345", got)
	}
}

func TestExtractMemoTopLevelMemoField(t *testing.T) {
	tx := Transaction{Memo: "  sub-42  "}
	if got := ExtractMemo(tx); got != "sub-42" {
		t.Errorf("ExtractMemo = %q, want sub-42", got)
	}
}

func TestExtractMemoFromDescription(t *testing.T) {
	tx := Transaction{Description: `Transfer with memo: "proj-xyz"`}
	if got := ExtractMemo(tx); got != "proj-xyz" {
		t.Errorf("ExtractMemo = %q, want proj-xyz", got)
	}
}

func TestExtractMemoFromInstructionBase58(t *testing.T) {
	encoded := base58.Encode([]byte("project-99"))
	tx := Transaction{Instructions: []Instruction{{ProgramID: memoProgramID, Data: encoded}}}
	if got := ExtractMemo(tx); got != "project-99" {
		t.Errorf("ExtractMemo = %q, want project-99", got)
	}
}

func TestExtractMemoFromInstructionParsedInfo(t *testing.T) {
	ins := Instruction{}
	ins.Parsed = &struct {
		Info struct {
			Memo string `json:"memo"`
		} `json:"info"`
	}{}
	ins.Parsed.Info.Memo = "parsed-memo-1"
	tx := Transaction{Instructions: []Instruction{ins}}
	if got := ExtractMemo(tx); got != "parsed-memo-1" {
		t.Errorf("ExtractMemo = %q, want parsed-memo-1", got)
	}
}

func TestExtractMemoNoneFound(t *testing.T) {
	tx := Transaction{}
	if got := ExtractMemo(tx); got != "" {
		t.Errorf("ExtractMemo = %q, want empty", got)
	}
}

func TestIsSubmissionIDMemoValid(t *testing.T) {
	cases := []string{"abc12", "project-name_42", "ABCDEFGHIJ"}
	for _, m := range cases {
		if !IsSubmissionIDMemo(m) {
			t.Errorf("expected %q to be a valid submission id memo", m)
		}
	}
}

func TestIsSubmissionIDMemoInvalid(t *testing.T) {
	cases := []string{"", "ab", "has spaces here", "has/slash", string(make([]byte, 81))}
	for _, m := range cases {
		if IsSubmissionIDMemo(m) {
			t.Errorf("expected %q to be rejected", m)
		}
	}
}

func TestExtractSenderFromTokenTransfer(t *testing.T) {
	tx := Transaction{
		FeePayer: "fee-payer-addr",
		TokenTransfers: []TokenTransfer{
			{FromUserAccount: "voter-addr", ToUserAccount: testWallet},
		},
	}
	if got := ExtractSender(tx, testWallet); got != "voter-addr" {
		t.Errorf("ExtractSender = %q, want voter-addr", got)
	}
}

func TestExtractSenderFallsBackToFeePayer(t *testing.T) {
	tx := Transaction{FeePayer: "fee-payer-addr"}
	if got := ExtractSender(tx, testWallet); got != "fee-payer-addr" {
		t.Errorf("ExtractSender = %q, want fee-payer-addr", got)
	}
}

func TestGovernanceTransferAmountDistinguishesMint(t *testing.T) {
	tx := Transaction{
		TokenTransfers: []TokenTransfer{
			{Mint: "other-mint", ToUserAccount: testWallet, TokenAmount: 5},
			{Mint: "gov-mint", ToUserAccount: testWallet, TokenAmount: 42},
		},
	}
	amount, ok := governanceTransferAmount(tx, testWallet, "gov-mint")
	if !ok || amount != 42 {
		t.Errorf("governanceTransferAmount = (%v, %v), want (42, true)", amount, ok)
	}
}

func TestGovernanceTransferAmountAbsentIsDonation(t *testing.T) {
	tx := Transaction{NativeTransfers: []NativeTransfer{{ToUserAccount: testWallet, Amount: 1_000_000}}}
	if _, ok := governanceTransferAmount(tx, testWallet, "gov-mint"); ok {
		t.Error("expected no governance transfer for a native-only transaction")
	}
}

func TestSenderWeightCapsAtTen(t *testing.T) {
	if got := SenderWeight(1_000_000_000); got != senderWeightCap {
		t.Errorf("SenderWeight(huge) = %v, want capped at %v", got, senderWeightCap)
	}
}

func TestSenderWeightZeroForNoAmount(t *testing.T) {
	if got := SenderWeight(0); got != 0 {
		t.Errorf("SenderWeight(0) = %v, want 0", got)
	}
}

func TestCommunityScoreEmptyVotesIsZero(t *testing.T) {
	if got := CommunityScore(nil, nil); got != 0 {
		t.Errorf("CommunityScore(no votes) = %v, want 0", got)
	}
}

func TestCommunityScoreNeverExceedsTen(t *testing.T) {
	votes := makeVotes(map[string]float64{"a": 1e12, "b": 1e12, "c": 1e12})
	if got := CommunityScore(votes, nil); got > 10 {
		t.Errorf("CommunityScore = %v, want <= 10", got)
	}
}

func TestCommunityScoreKnownHolderMatchesVoteSplitScenario(t *testing.T) {
	// §8 scenario 4: known holder (balance 400) casts a vote capped to
	// 100 units by the ingestor; the overflow becomes a separate prize
	// pool contribution and never reaches CommunityScore. Expected
	// result: min(log10(100+1)*2, 10) ≈ 4.02, within 0.05.
	reg := &Registry{balances: map[string]float64{"w1": 400}}
	votes := makeVotes(map[string]float64{"w1": 100})

	got := CommunityScore(votes, reg)
	want := 4.02
	if math.Abs(got-want) > 0.05 {
		t.Errorf("CommunityScore(known holder, capped amount 100) = %v, want ≈%v (within 0.05)", got, want)
	}
}

func makeVotes(bySender map[string]float64) []models.Vote {
	var out []models.Vote
	for sender, amount := range bySender {
		out = append(out, models.Vote{SenderAddress: sender, Amount: amount})
	}
	return out
}

func TestBase64FallbackDecodesMemo(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("b64-memo"))
	tx := Transaction{Instructions: []Instruction{{ProgramID: memoProgramID, Data: encoded}}}
	got := ExtractMemo(tx)
	if got != "b64-memo" {
		t.Errorf("ExtractMemo (base64 fallback) = %q, want b64-memo", got)
	}
}

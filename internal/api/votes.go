package api

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clanktank/judge-engine/internal/metrics"
	"github.com/clanktank/judge-engine/internal/store"
	"github.com/clanktank/judge-engine/internal/votes"
	"github.com/clanktank/judge-engine/pkg/models"
)

func (h *Handler) communityScore(v []models.Vote) float64 {
	return votes.CommunityScore(v, h.holders)
}

func (h *Handler) handleCommunityScores(c *gin.Context) {
	submissions, err := h.store.ListSubmissions(c.Request.Context(), store.ListOptions{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load submissions"})
		return
	}

	out := make(map[string]float64, len(submissions))
	for _, sub := range submissions {
		v, err := h.store.VotesForSubmission(c.Request.Context(), sub.SubmissionID)
		if err != nil {
			continue
		}
		out[sub.SubmissionID] = h.communityScore(v)
	}
	c.JSON(http.StatusOK, gin.H{"community_scores": out})
}

func (h *Handler) handleCommunityVoteStats(c *gin.Context) {
	submissions, err := h.store.ListSubmissions(c.Request.Context(), store.ListOptions{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load submissions"})
		return
	}

	var totalVotes int
	var totalAmount float64
	senders := make(map[string]bool)
	for _, sub := range submissions {
		v, err := h.store.VotesForSubmission(c.Request.Context(), sub.SubmissionID)
		if err != nil {
			continue
		}
		for _, vote := range v {
			totalVotes++
			totalAmount += vote.Amount
			senders[vote.SenderAddress] = true
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"total_votes":    totalVotes,
		"total_amount":   totalAmount,
		"unique_senders": len(senders),
	})
}

func (h *Handler) handlePrizePool(c *gin.Context) {
	if h.prizepool == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "prize pool watcher not configured"})
		return
	}
	c.JSON(http.StatusOK, h.prizepool.Snapshot())
}

func (h *Handler) handlePrizePoolStream(c *gin.Context) {
	if h.prizepool == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "prize pool watcher not configured"})
		return
	}
	initial, err := json.Marshal(h.prizepool.Snapshot())
	if err != nil {
		initial = nil
	}
	h.hub.Subscribe(c, initial)
}

// heliusWebhookPayload is the subset of a Helius-style webhook
// delivery the ingestor needs; the wire shape mirrors internal/votes's
// polled Transaction type since both come from the same indexer API.
type heliusWebhookPayload []votes.Transaction

func (h *Handler) handleHeliusWebhook(c *gin.Context) {
	if h.cfg.WebhookSecret != "" {
		header := c.GetHeader("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(header), []byte(h.cfg.WebhookSecret)) != 1 {
			h.audit.Security(c.Request.Context(), "webhook_unauthorized", "", "", "")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
			return
		}
	} else if h.cfg.IsProduction() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "webhook secret is not configured"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	var payload heliusWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload"})
		return
	}

	if h.ingestor != nil {
		for _, tx := range payload {
			outcome, err := h.ingestor.ProcessTransaction(c.Request.Context(), tx)
			if err != nil {
				h.audit.Entry(c.Request.Context(), "vote_ingest_failed", tx.Signature, "", err.Error())
				metrics.RecordVoteIngestion("error")
				continue
			}
			metrics.RecordVoteIngestion(string(outcome))
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "processed": len(payload)})
}

// handleTestWebhook lets local development exercise the ingestion path
// without a live indexer; it never runs in production.
func (h *Handler) handleTestWebhook(c *gin.Context) {
	if h.cfg.IsProduction() {
		c.JSON(http.StatusNotFound, gin.H{})
		return
	}
	h.handleHeliusWebhook(c)
}

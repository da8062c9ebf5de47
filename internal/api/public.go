package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clanktank/judge-engine/internal/schema"
	"github.com/clanktank/judge-engine/internal/store"
	"github.com/clanktank/judge-engine/pkg/models"
)

// leaderboardStatuses is the fixed status filter §4.11 requires for the
// public leaderboard: anything still mid-pipeline is excluded.
var leaderboardStatuses = []models.Status{models.StatusScored, models.StatusCompleted, models.StatusPublished}

type leaderboardEntry struct {
	Submission     models.Submission `json:"submission"`
	WeightedTotal  float64           `json:"weighted_total"`
	ScoreOutOfTen  float64           `json:"score_out_of_ten"`
	CommunityScore float64           `json:"community_score"`
}

func (h *Handler) handleLeaderboard(c *gin.Context) {
	submissions, err := h.store.ListSubmissions(c.Request.Context(), store.ListOptions{Statuses: leaderboardStatuses})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load leaderboard"})
		return
	}

	entries := make([]leaderboardEntry, 0, len(submissions))
	for _, sub := range submissions {
		scores, err := h.store.LatestScores(c.Request.Context(), sub.SubmissionID)
		if err != nil {
			continue
		}
		var total float64
		for _, sc := range scores {
			total += sc.WeightedTotal
		}
		if len(scores) > 0 {
			total /= float64(len(scores))
		}

		votes, _ := h.store.VotesForSubmission(c.Request.Context(), sub.SubmissionID)
		entries = append(entries, leaderboardEntry{
			Submission:     sub,
			WeightedTotal:  total,
			ScoreOutOfTen:  total / 4,
			CommunityScore: h.communityScore(votes),
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].WeightedTotal > entries[j].WeightedTotal })
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

func (h *Handler) handleStats(c *gin.Context) {
	submissions, err := h.store.ListSubmissions(c.Request.Context(), store.ListOptions{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}

	byStatus := make(map[models.Status]int)
	byCategory := make(map[models.Category]int)
	for _, sub := range submissions {
		byStatus[sub.Status]++
		byCategory[sub.Category]++
	}

	c.JSON(http.StatusOK, gin.H{
		"total":       len(submissions),
		"by_status":   byStatus,
		"by_category": byCategory,
	})
}

func (h *Handler) handleSubmissionSchema(c *gin.Context) {
	version := parseVersion(c.DefaultQuery("version", "v2"))
	fields, err := schema.Fields(version)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	windowOpen := h.cfg.SubmissionDeadline == nil || now.Before(*h.cfg.SubmissionDeadline)
	c.JSON(http.StatusOK, gin.H{
		"version":     version,
		"fields":      fields,
		"window_open": windowOpen,
		"deadline":    h.cfg.SubmissionDeadline,
	})
}

func (h *Handler) handleFeedback(c *gin.Context) {
	id := c.Param("id")
	counts, err := h.store.ReactionCounts(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load feedback"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"submission_id": id, "reactions": counts})
}

func (h *Handler) handleToggleLikeDislike(c *gin.Context) {
	id := c.Param("id")
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req struct {
		Action string `json:"action"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	action := models.LikeDislikeAction(req.Action)
	switch action {
	case models.ActionLike, models.ActionDislike, models.ActionRemove:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be one of like, dislike, remove"})
		return
	}

	ld := models.LikeDislike{SubmissionID: id, DiscordID: user.DiscordID, Action: action, CreatedAt: time.Now().UTC()}
	if err := h.store.SetLikeDislike(c.Request.Context(), ld); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record reaction"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) handleLikeDislikeCounts(c *gin.Context) {
	id := c.Param("id")
	likes, dislikes, err := h.store.LikeDislikeCounts(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load counts"})
		return
	}

	resp := gin.H{"likes": likes, "dislikes": dislikes}
	if user := currentUser(c); user != nil {
		action, _ := h.store.UserLikeDislike(c.Request.Context(), user.DiscordID, id)
		resp["your_action"] = action
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) handleConfig(c *gin.Context) {
	now := time.Now().UTC()
	c.JSON(http.StatusOK, gin.H{
		"window_open":          h.cfg.SubmissionDeadline == nil || now.Before(*h.cfg.SubmissionDeadline),
		"deadline":             h.cfg.SubmissionDeadline,
		"prize_wallet_address": h.cfg.PrizeWalletAddress,
		"governance_mint":      h.cfg.GovernanceMint,
	})
}

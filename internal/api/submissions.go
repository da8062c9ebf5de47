package api

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/clanktank/judge-engine/internal/schema"
	"github.com/clanktank/judge-engine/internal/store"
	"github.com/clanktank/judge-engine/pkg/models"
)

const (
	minUploadBytes = 100
	maxUploadBytes = 2 << 20 // 2 MB
	minImageSide   = 50
	maxImageSide   = 4000
)

// parseVersion resolves the schema version from a gin path/query param,
// defaulting to v2 (the latest) when unversioned routes delegate here.
func parseVersion(raw string) models.SchemaVersion {
	switch raw {
	case "v1":
		return models.SchemaV1
	default:
		return models.SchemaV2
	}
}

func (h *Handler) handleCreateSubmission(version models.SchemaVersion) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.cfg.WindowClosed(time.Now()) {
			c.JSON(http.StatusForbidden, gin.H{"error": "submission window is closed"})
			return
		}
		user := currentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		var in models.SubmissionInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}
		if err := schema.Validate(version, submissionInputToValues(in)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sub, err := h.store.CreateSubmission(c.Request.Context(), version, in, user.DiscordID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create submission"})
			return
		}
		h.audit.Entry(c.Request.Context(), "submission_created", sub.SubmissionID, user.DiscordID, sub.ProjectName)
		c.JSON(http.StatusCreated, sub)
	}
}

func (h *Handler) handleUpdateSubmission(version models.SchemaVersion) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if h.cfg.WindowClosed(time.Now()) {
			c.JSON(http.StatusForbidden, gin.H{"error": "submission window is closed"})
			return
		}
		user := currentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		existing, err := h.store.GetSubmission(c.Request.Context(), version, id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
			return
		}
		if existing.OwnerDiscordID != user.DiscordID {
			h.audit.Security(c.Request.Context(), "unauthorized_edit_attempt", id, user.DiscordID, "")
			c.JSON(http.StatusForbidden, gin.H{"error": "only the submission owner may edit it"})
			return
		}

		var in models.SubmissionInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}
		if err := schema.Validate(version, submissionInputToValues(in)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := h.store.UpdateSubmission(c.Request.Context(), version, id, in); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update submission"})
			return
		}
		h.audit.Entry(c.Request.Context(), "submission_updated", id, user.DiscordID, "")
		c.JSON(http.StatusOK, gin.H{"status": "updated"})
	}
}

func (h *Handler) handleListSubmissions(c *gin.Context) {
	opts := store.ListOptions{}
	submissions, err := h.store.ListSubmissions(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list submissions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": submissions})
}

func (h *Handler) handleGetSubmission(c *gin.Context) {
	id := c.Param("id")
	sub, err := h.store.FindSubmission(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
		return
	}

	resp := gin.H{"submission": sub}
	if user := currentUser(c); user != nil {
		resp["can_edit"] = user.DiscordID == sub.OwnerDiscordID
	} else {
		resp["can_edit"] = false
	}

	includes := strings.Split(c.Query("include"), ",")
	for _, inc := range includes {
		switch strings.TrimSpace(inc) {
		case "scores":
			if scores, err := h.store.LatestScores(c.Request.Context(), id); err == nil {
				resp["scores"] = scores
			}
		case "research":
			if research, err := h.store.GetResearch(c.Request.Context(), id); err == nil {
				resp["research"] = research
			}
		case "community":
			if votes, err := h.store.VotesForSubmission(c.Request.Context(), id); err == nil {
				resp["community_score"] = h.communityScore(votes)
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}

// handleUploadImage accepts a multipart form (submission_id, file),
// validates it, strips EXIF by re-encoding as RGB JPEG, and stores the
// blob under the configured upload directory.
func (h *Handler) handleUploadImage(version models.SchemaVersion) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.cfg.WindowClosed(time.Now()) {
			c.JSON(http.StatusForbidden, gin.H{"error": "submission window is closed"})
			return
		}
		user := currentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		submissionID := c.PostForm("submission_id")
		if submissionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "submission_id is required"})
			return
		}
		sub, err := h.store.GetSubmission(c.Request.Context(), version, submissionID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
			return
		}
		if sub.OwnerDiscordID != user.DiscordID {
			h.audit.Security(c.Request.Context(), "unauthorized_upload_attempt", submissionID, user.DiscordID, "")
			c.JSON(http.StatusForbidden, gin.H{"error": "only the submission owner may upload an image"})
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if fileHeader.Size < minUploadBytes || fileHeader.Size > maxUploadBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("file size must be between %d bytes and %d bytes", minUploadBytes, maxUploadBytes)})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
			return
		}
		defer file.Close()
		raw, err := io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
			return
		}

		mtype := mimetype.Detect(raw)
		if !strings.HasPrefix(mtype.String(), "image/") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "uploaded file is not an image", "detected": mtype.String()})
			return
		}
		if !isAllowedImageType(mtype.String()) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type", "detected": mtype.String()})
			return
		}

		img, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to decode image"})
			return
		}
		bounds := img.Bounds()
		w, hgt := bounds.Dx(), bounds.Dy()
		if w < minImageSide || hgt < minImageSide || w > maxImageSide || hgt > maxImageSide {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("image dimensions must be between %dpx and %dpx per side", minImageSide, maxImageSide)})
			return
		}

		// Re-encoding as RGB JPEG strips EXIF and any other embedded
		// metadata — Go's image decoders never round-trip it into the
		// in-memory image.Image in the first place.
		var encoded bytes.Buffer
		if err := jpeg.Encode(&encoded, img, &jpeg.Options{Quality: 90}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to re-encode image"})
			return
		}

		filename, err := randomFilename(".jpg")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate upload filename"})
			return
		}
		if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to prepare upload directory"})
			return
		}
		dest := filepath.Join(h.uploadDir, filename)
		if err := os.WriteFile(dest, encoded.Bytes(), 0o644); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store uploaded image"})
			return
		}

		if err := h.store.SetProjectImage(c.Request.Context(), version, submissionID, filename); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record uploaded image"})
			return
		}
		h.audit.Entry(c.Request.Context(), "image_uploaded", submissionID, user.DiscordID, filename)
		c.JSON(http.StatusOK, gin.H{"filename": filename})
	}
}

func (h *Handler) handleServeUpload(c *gin.Context) {
	filename := c.Param("filename")
	if strings.ContainsAny(filename, "/\\") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filename"})
		return
	}
	c.File(filepath.Join(h.uploadDir, filename))
}

// isAllowedImageType accepts JPEG/PNG/GIF. WEBP is intentionally
// excluded: the corpus carries no WEBP decoder (the stdlib image
// package has none, and nothing in the examples imports
// golang.org/x/image/webp), and the re-encode step below needs an
// image.Image to strip EXIF from, not just a magic-byte match.
func isAllowedImageType(mtype string) bool {
	switch mtype {
	case "image/jpeg", "image/png", "image/gif":
		return true
	default:
		return false
	}
}

func randomFilename(ext string) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b) + ext, nil
}

func submissionInputToValues(in models.SubmissionInput) map[string]string {
	return map[string]string{
		"project_name":   in.ProjectName,
		"category":       in.Category,
		"description":    in.Description,
		"github_url":     in.GithubURL,
		"demo_video_url": in.DemoVideoURL,
		"problem_solved": in.ProblemSolved,
		"favorite_part":  in.FavoritePart,
		"twitter_handle": in.TwitterHandle,
		"solana_address": in.SolanaAddress,
		"discord_handle": in.DiscordHandle,
	}
}

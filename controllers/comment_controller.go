package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/arvand/learnhub/models"
	"github.com/arvand/learnhub/utils"
)

// CommentController serves the nested comment feed, comment creation and
// author-side deletion, plus the admin moderation queue.
type CommentController struct {
	db *gorm.DB
}

// NewCommentController creates a CommentController.
func NewCommentController(db *gorm.DB) *CommentController {
	return &CommentController{db: db}
}

// List returns one page of approved comments for a target, requester's
// threads first, then newest first.
func (c *CommentController) List(ctx *gin.Context) {
	kind, ok := models.ParseTargetKind(ctx.Param("target_type"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40430, "unknown target type")
		return
	}
	target := models.Target{Kind: kind, Slug: strings.TrimSpace(ctx.Param("target_slug"))}
	if _, err := models.ResolveTarget(c.db, string(target.Kind), target.Slug); err != nil {
		if errors.Is(err, models.ErrTargetNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40431, "target not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to resolve target")
		return
	}

	requesterID, _ := currentUserID(ctx)

	pageSize := 0
	if v := strings.TrimSpace(ctx.Query("page_size")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			pageSize = n
		}
	}

	page, err := models.ListComments(c.db, target, requesterID, ctx.Query("cursor"), pageSize)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			utils.FieldErrors(ctx, 40032, verr.Fields)
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50038, "failed to list comments")
		return
	}

	authors, err := models.LoadCommentAuthors(c.db, page)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to load comment authors")
		return
	}

	items := make([]gin.H, 0, len(page.Items))
	for _, node := range page.Items {
		replies := make([]gin.H, 0, len(node.Replies))
		for _, reply := range node.Replies {
			replies = append(replies, commentResponse(reply, authors, nil))
		}
		items = append(items, commentResponse(node.Comment, authors, replies))
	}

	utils.Success(ctx, gin.H{
		"items":       items,
		"next_cursor": page.NextCursor,
	})
}

// Create validates and stores a new comment or reply. Comments written by
// admins are approved immediately; everything else enters the pending queue.
func (c *CommentController) Create(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var req struct {
		ModelType  string `json:"model_type"`
		ObjectSlug string `json:"object_slug"`
		Text       string `json:"text"`
		Parent     *uint  `json:"parent"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	comment, err := models.CreateComment(c.db, models.CreateCommentInput{
		TargetType: req.ModelType,
		TargetSlug: req.ObjectSlug,
		UserID:     userID,
		Text:       utils.Sanitize(req.Text),
		ParentID:   req.Parent,
		Approved:   isAdminRequest(ctx),
	})
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			utils.FieldErrors(ctx, 40031, verr.Fields)
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to create comment")
		return
	}

	utils.Created(ctx, gin.H{
		"id":          comment.ID,
		"target_type": comment.TargetType,
		"target_slug": comment.TargetSlug,
		"text":        comment.Text,
		"parent_id":   comment.ParentID,
		"is_approved": comment.IsApproved,
		"created_at":  comment.CreatedAt,
	})
}

// Delete soft-deletes a comment. Only the author may do this.
func (c *CommentController) Delete(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	commentID, err := parseCommentID(ctx)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40033, "invalid comment id")
		return
	}

	if err := models.SoftDeleteComment(c.db, commentID, userID); err != nil {
		switch {
		case errors.Is(err, models.ErrCommentNotFound):
			utils.Error(ctx, http.StatusNotFound, 40432, "comment not found")
		case errors.Is(err, models.ErrNotCommentAuthor):
			utils.Error(ctx, http.StatusForbidden, 40330, "only the author may delete this comment")
		default:
			utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to delete comment")
		}
		return
	}

	ctx.Status(http.StatusNoContent)
}

// Approve moves a comment into the approved state. Admin only.
func (c *CommentController) Approve(ctx *gin.Context) {
	moderatorID, ok := c.requireAdmin(ctx)
	if !ok {
		return
	}

	commentID, err := parseCommentID(ctx)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40033, "invalid comment id")
		return
	}

	comment, err := models.ApproveComment(c.db, commentID, moderatorID)
	if err != nil {
		if errors.Is(err, models.ErrCommentNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40432, "comment not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50034, "failed to approve comment")
		return
	}

	utils.Success(ctx, gin.H{
		"id":          comment.ID,
		"is_approved": comment.IsApproved,
		"approved_at": comment.ApprovedAt,
	})
}

// Demote moves a comment back to the pending state. Admin only.
func (c *CommentController) Demote(ctx *gin.Context) {
	moderatorID, ok := c.requireAdmin(ctx)
	if !ok {
		return
	}

	commentID, err := parseCommentID(ctx)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40033, "invalid comment id")
		return
	}

	comment, err := models.DemoteComment(c.db, commentID, moderatorID)
	if err != nil {
		if errors.Is(err, models.ErrCommentNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40432, "comment not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50035, "failed to demote comment")
		return
	}

	utils.Success(ctx, gin.H{
		"id":          comment.ID,
		"is_approved": comment.IsApproved,
		"approved_at": comment.ApprovedAt,
	})
}

// Pending lists comments waiting for moderation, oldest first. Admin only.
func (c *CommentController) Pending(ctx *gin.Context) {
	if _, ok := c.requireAdmin(ctx); !ok {
		return
	}

	limit := 50
	if v := strings.TrimSpace(ctx.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	comments, err := models.ListPendingComments(c.db, limit)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50036, "failed to list pending comments")
		return
	}

	items := make([]gin.H, 0, len(comments))
	for _, comment := range comments {
		items = append(items, gin.H{
			"id":          comment.ID,
			"target_type": comment.TargetType,
			"target_slug": comment.TargetSlug,
			"user_id":     comment.UserID,
			"text":        comment.Text,
			"parent_id":   comment.ParentID,
			"created_at":  comment.CreatedAt,
		})
	}

	utils.Success(ctx, gin.H{"items": items})
}

// History returns the append-only audit trail for one comment. Admin only.
func (c *CommentController) History(ctx *gin.Context) {
	if _, ok := c.requireAdmin(ctx); !ok {
		return
	}

	commentID, err := parseCommentID(ctx)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40033, "invalid comment id")
		return
	}

	entries, err := models.CommentHistoryFor(c.db, commentID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50037, "failed to load comment history")
		return
	}

	utils.Success(ctx, gin.H{"items": entries})
}

func (c *CommentController) requireAdmin(ctx *gin.Context) (uint, bool) {
	userID, ok := currentUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return 0, false
	}
	if !isAdminRequest(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40310, "admin privileges required")
		return 0, false
	}
	return userID, true
}

func parseCommentID(ctx *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(ctx.Param("id")), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func commentResponse(comment models.Comment, authors map[uint]models.User, replies []gin.H) gin.H {
	displayName := "site user"
	avatarURL := ""
	if author, ok := authors[comment.UserID]; ok {
		displayName = author.DisplayName()
		avatarURL = author.AvatarURL
	}
	resp := gin.H{
		"id":                  comment.ID,
		"author_display_name": displayName,
		"avatar_url":          avatarURL,
		"text":                comment.Text,
		"parent_id":           comment.ParentID,
		"created_at":          comment.CreatedAt,
	}
	if replies != nil {
		resp["replies"] = replies
	}
	return resp
}

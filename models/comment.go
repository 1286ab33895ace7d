package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Comment is a single entry in the one-level comment tree of a target.
// A comment with ParentID == nil is top-level; a comment with a parent is a
// reply, and replies can never be replied to.
type Comment struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	TargetType   string         `gorm:"size:32;index:idx_comments_target;not null" json:"target_type"`
	TargetSlug   string         `gorm:"size:255;index:idx_comments_target;not null" json:"target_slug"`
	UserID       uint           `gorm:"index;not null" json:"user_id"`
	Text         string         `gorm:"type:text;not null" json:"text"`
	ParentID     *uint          `gorm:"index" json:"parent_id"`
	IsApproved   bool           `gorm:"not null;default:false" json:"is_approved"`
	ApprovedByID *uint          `json:"approved_by_id"`
	ApprovedAt   *time.Time     `json:"approved_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	User         User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// CreateCommentInput carries everything needed to create a comment.
// Approved is only honored for moderator-authored comments; such a comment is
// born counted, which is the same transition as pending->approved.
type CreateCommentInput struct {
	TargetType string
	TargetSlug string
	UserID     uint
	Text       string
	ParentID   *uint
	Approved   bool
}

// CreateComment validates the input against every tree rule at once and, on
// success, persists the comment together with its history row. Counter side
// effects only occur when the comment is created directly approved.
func CreateComment(db *gorm.DB, in CreateCommentInput) (*Comment, error) {
	verr := newValidationError()

	if strings.TrimSpace(in.Text) == "" {
		verr.add("text", "text cannot be empty")
	}

	target, err := ResolveTarget(db, in.TargetType, in.TargetSlug)
	targetResolved := err == nil
	if err != nil {
		if errors.Is(err, ErrTargetNotFound) {
			verr.add("model_type", "this model does not accept comments or no matching published object exists")
		} else {
			return nil, err
		}
	}

	var parent *Comment
	if in.ParentID != nil {
		var p Comment
		err := db.First(&p, *in.ParentID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			verr.add("parent", "parent comment does not exist")
		case err != nil:
			return nil, err
		default:
			parent = &p
			if !parent.IsApproved {
				verr.add("parent", "replies are only allowed on approved comments")
			}
			// Comparing against an unresolved target would always mismatch.
			if targetResolved && (parent.TargetType != string(target.Kind) || parent.TargetSlug != target.Slug) {
				verr.add("parent", "parent belongs to a different target")
			}
			if parent.ParentID != nil {
				verr.add("parent", "replying to a reply is not allowed, only one level of replies is supported")
			}
		}
	}

	if !verr.empty() {
		return nil, verr
	}

	comment := &Comment{
		TargetType: string(target.Kind),
		TargetSlug: target.Slug,
		UserID:     in.UserID,
		Text:       in.Text,
		ParentID:   in.ParentID,
	}
	if in.Approved {
		now := time.Now()
		comment.IsApproved = true
		comment.ApprovedAt = &now
		comment.ApprovedByID = &in.UserID
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		if err := appendHistory(tx, comment, HistoryCreated, in.UserID); err != nil {
			return err
		}
		if comment.IsApproved {
			// Born approved counts as pending->approved.
			if err := appendHistory(tx, comment, HistoryApproved, in.UserID); err != nil {
				return err
			}
			return AdjustCommentCount(tx, target, +1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// SoftDeleteComment marks a comment deleted on behalf of its author. Deleting
// an approved comment decrements the target counter exactly once; a comment
// demoted first is no longer counted and the delete leaves the counter alone.
func SoftDeleteComment(db *gorm.DB, commentID, actorID uint) error {
	var comment Comment
	if err := db.First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return err
	}
	if comment.UserID != actorID {
		return ErrNotCommentAuthor
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&comment).Error; err != nil {
			return err
		}
		if err := appendHistory(tx, &comment, HistoryDeleted, actorID); err != nil {
			return err
		}
		if delta := transitionDelta(
			commentState{approved: comment.IsApproved},
			commentState{approved: comment.IsApproved, deleted: true},
		); delta != 0 {
			return AdjustCommentCount(tx, Target{Kind: TargetKind(comment.TargetType), Slug: comment.TargetSlug}, delta)
		}
		return nil
	})
}

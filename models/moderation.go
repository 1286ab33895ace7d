package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// commentState is the moderation-relevant projection of a comment. A comment
// contributes to count_comments exactly when approved and not deleted.
type commentState struct {
	approved bool
	deleted  bool
}

func (s commentState) counted() bool {
	return s.approved && !s.deleted
}

// transitionDelta is the whole counter side-effect table in one place: +1
// when a comment starts being counted, -1 when it stops, 0 otherwise. The
// deltas commute, so concurrent transitions applied as relative SQL updates
// converge regardless of ordering.
func transitionDelta(old, next commentState) int {
	switch {
	case !old.counted() && next.counted():
		return +1
	case old.counted() && !next.counted():
		return -1
	}
	return 0
}

// ApproveComment moves a pending comment to approved, stamping approved_at
// only the first time. Re-approving an approved comment is a no-op.
func ApproveComment(db *gorm.DB, commentID, moderatorID uint) (*Comment, error) {
	var comment Comment
	if err := db.First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	if comment.IsApproved {
		return &comment, nil
	}

	old := commentState{approved: false}
	comment.IsApproved = true
	comment.ApprovedByID = &moderatorID
	if comment.ApprovedAt == nil {
		now := time.Now()
		comment.ApprovedAt = &now
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&comment).Error; err != nil {
			return err
		}
		if err := appendHistory(tx, &comment, HistoryApproved, moderatorID); err != nil {
			return err
		}
		if delta := transitionDelta(old, commentState{approved: true}); delta != 0 {
			return AdjustCommentCount(tx, Target{Kind: TargetKind(comment.TargetType), Slug: comment.TargetSlug}, delta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// DemoteComment moves an approved comment back to pending. approved_at is
// left in place so a later re-approval does not reset it.
func DemoteComment(db *gorm.DB, commentID, moderatorID uint) (*Comment, error) {
	var comment Comment
	if err := db.First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	if !comment.IsApproved {
		return &comment, nil
	}

	comment.IsApproved = false
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&comment).Error; err != nil {
			return err
		}
		if err := appendHistory(tx, &comment, HistoryDemoted, moderatorID); err != nil {
			return err
		}
		if delta := transitionDelta(commentState{approved: true}, commentState{approved: false}); delta != 0 {
			return AdjustCommentCount(tx, Target{Kind: TargetKind(comment.TargetType), Slug: comment.TargetSlug}, delta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListPendingComments returns the moderation queue, oldest first.
func ListPendingComments(db *gorm.DB, limit int) ([]Comment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var comments []Comment
	err := db.Where("is_approved = ?", false).
		Order("created_at ASC").
		Limit(limit).
		Find(&comments).Error
	return comments, err
}

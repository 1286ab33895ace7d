package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment history actions.
const (
	HistoryCreated  = "created"
	HistoryApproved = "approved"
	HistoryDemoted  = "demoted"
	HistoryDeleted  = "deleted"
)

// CommentHistory is an append-only change log for comments. One row is
// written in the same transaction as every comment mutation; rows are never
// updated or removed. Tree position is deliberately not recorded.
type CommentHistory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CommentID  uint      `gorm:"index;not null" json:"comment_id"`
	Action     string    `gorm:"size:16;not null" json:"action"`
	ActorID    uint      `gorm:"index" json:"actor_id"`
	Text       string    `gorm:"type:text" json:"text"`
	IsApproved bool      `json:"is_approved"`
	CreatedAt  time.Time `json:"created_at"`
}

func appendHistory(tx *gorm.DB, c *Comment, action string, actorID uint) error {
	return tx.Create(&CommentHistory{
		CommentID:  c.ID,
		Action:     action,
		ActorID:    actorID,
		Text:       c.Text,
		IsApproved: c.IsApproved,
	}).Error
}

// CommentHistoryFor returns the change log of a comment, oldest first.
func CommentHistoryFor(db *gorm.DB, commentID uint) ([]CommentHistory, error) {
	var rows []CommentHistory
	err := db.Where("comment_id = ?", commentID).Order("id ASC").Find(&rows).Error
	return rows, err
}

package models

import "time"

// Article is a blog entry that can receive comments and visits.
type Article struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Title            string    `gorm:"size:255;not null" json:"title"`
	Slug             string    `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Body             string    `gorm:"type:text;not null" json:"body"`
	AuthorID         uint      `gorm:"index;not null" json:"author_id"`
	IsPublished      bool      `gorm:"not null;default:false" json:"is_published"`
	IsDeleted        bool      `gorm:"not null;default:false" json:"is_deleted"`
	CountComments    int64     `gorm:"not null;default:0" json:"count_comments"`
	CountViews       int64     `gorm:"not null;default:0" json:"count_views"`
	CountUniqueViews int64     `gorm:"not null;default:0" json:"count_unique_views"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Author           User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
}

package models

import "time"

// Course status values.
const (
	CourseUpcoming   = "upcoming"
	CourseInProgress = "in_progress"
	CourseCompleted  = "completed"
)

// Course is a catalog entry that can receive comments and visits.
// The three count_* columns are denormalized engagement counters and are
// only ever mutated through atomic relative updates.
type Course struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Title            string    `gorm:"size:100;not null" json:"title"`
	Slug             string    `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Description      string    `gorm:"type:text" json:"description"`
	Status           string    `gorm:"size:20;default:'upcoming'" json:"status"`
	TeacherID        uint      `gorm:"index;not null" json:"teacher_id"`
	IsPublished      bool      `gorm:"not null;default:false" json:"is_published"`
	IsDeleted        bool      `gorm:"not null;default:false" json:"is_deleted"`
	CountComments    int64     `gorm:"not null;default:0" json:"count_comments"`
	CountViews       int64     `gorm:"not null;default:0" json:"count_views"`
	CountUniqueViews int64     `gorm:"not null;default:0" json:"count_unique_views"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Teacher          User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"teacher"`
}

// ValidCourseStatus reports whether s is one of the known course states.
func ValidCourseStatus(s string) bool {
	switch s {
	case CourseUpcoming, CourseInProgress, CourseCompleted:
		return true
	}
	return false
}

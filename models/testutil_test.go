package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory sqlite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&User{}, &Course{}, &Article{}, &Comment{}, &CommentHistory{}, &ContentVisit{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) User {
	t.Helper()
	user := User{Username: username, PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedCourse(t *testing.T, db *gorm.DB, slug string, published bool) Course {
	t.Helper()
	teacher := seedUser(t, db, "teacher-"+slug)
	course := Course{
		Title:       slug,
		Slug:        slug,
		Status:      CourseUpcoming,
		TeacherID:   teacher.ID,
		IsPublished: published,
	}
	require.NoError(t, db.Create(&course).Error)
	return course
}

func seedArticle(t *testing.T, db *gorm.DB, slug string, published bool) Article {
	t.Helper()
	author := seedUser(t, db, "author-"+slug)
	article := Article{
		Title:       slug,
		Slug:        slug,
		AuthorID:    author.ID,
		IsPublished: published,
	}
	require.NoError(t, db.Create(&article).Error)
	return article
}

func courseCommentCount(t *testing.T, db *gorm.DB, slug string) int64 {
	t.Helper()
	count, err := LoadCommentCount(db, Target{Kind: TargetCourse, Slug: slug})
	require.NoError(t, err)
	return count
}

package controllers

import (
	"fmt"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/arvand/learnhub/middleware"
	"github.com/arvand/learnhub/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Course{}, &models.Article{},
		&models.Comment{}, &models.CommentHistory{}, &models.ContentVisit{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{Username: username, PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedPublishedCourse(t *testing.T, db *gorm.DB, slug string) models.Course {
	t.Helper()
	teacher := seedUser(t, db, "teacher-"+slug)
	course := models.Course{
		Title:       slug,
		Slug:        slug,
		Status:      models.CourseUpcoming,
		TeacherID:   teacher.ID,
		IsPublished: true,
	}
	require.NoError(t, db.Create(&course).Error)
	return course
}

// authAs stands in for the JWT middleware in handler tests.
func authAs(user models.User) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set(middleware.ContextUserIDKey, user.ID)
		ctx.Set(middleware.ContextUsernameKey, user.Username)
	}
}

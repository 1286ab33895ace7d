package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newCommentListRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()
	r.GET("/targets/:target_type/:target_slug/comments", NewCommentController(db).List)
	return r
}

func TestListCommentsMalformedCursorIsClientError(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := newTestDB(t)
	seedPublishedCourse(t, db, "go-basics")
	r := newCommentListRouter(db)

	req := httptest.NewRequest(http.MethodGet, "/targets/course/go-basics/comments?cursor=%25%25%25", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cursor")
}

func TestListCommentsStorageFailureIsServerError(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := newTestDB(t)
	seedPublishedCourse(t, db, "go-basics")
	r := newCommentListRouter(db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	req := httptest.NewRequest(http.MethodGet, "/targets/course/go-basics/comments", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code,
		"a storage outage is not the client's fault")
}

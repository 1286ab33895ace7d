package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/arvand/learnhub/models"
)

func newCourseRouter(db *gorm.DB, user models.User) *gin.Engine {
	r := gin.New()
	r.POST("/courses", authAs(user), NewCourseController(db).Create)
	return r
}

func postCourse(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/courses", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateCourseDuplicateTitleConflicts(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := newTestDB(t)
	user := seedUser(t, db, "teacher")
	r := newCourseRouter(db, user)

	first := postCourse(r, `{"title":"Go Basics"}`)
	require.Equal(t, http.StatusCreated, first.Code)

	// "Go  Basics!" slugifies to the same "go-basics".
	second := postCourse(r, `{"title":"Go  Basics!"}`)
	assert.Equal(t, http.StatusConflict, second.Code)

	var count int64
	require.NoError(t, db.Model(&models.Course{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateCourseRejectsBlankTitle(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := newTestDB(t)
	user := seedUser(t, db, "teacher")
	r := newCourseRouter(db, user)

	w := postCourse(r, `{"title":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

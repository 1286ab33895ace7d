package tasks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/arvand/learnhub/models"
	"github.com/arvand/learnhub/utils"
)

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

func seedCourse(t *testing.T, db *gorm.DB, slug string, published bool) models.Course {
	t.Helper()
	teacher := models.User{Username: "teacher-" + slug, PasswordHash: "x"}
	require.NoError(t, db.Create(&teacher).Error)
	course := models.Course{
		Title:       slug,
		Slug:        slug,
		Status:      models.CourseUpcoming,
		TeacherID:   teacher.ID,
		IsPublished: published,
	}
	require.NoError(t, db.Create(&course).Error)
	return course
}

func loadCourse(t *testing.T, db *gorm.DB, slug string) models.Course {
	t.Helper()
	var course models.Course
	require.NoError(t, db.Where("slug = ?", slug).First(&course).Error)
	return course
}

func recordView(t *testing.T, buf utils.VisitBuffer, slug, session string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, buf.RecordUnique(ctx, utils.VisitEvent{
		TargetType: "course", TargetSlug: slug, SessionKey: session,
	}, 2*time.Hour))
	require.NoError(t, buf.RecordHit(ctx, utils.TargetRef{
		TargetType: "course", TargetSlug: slug,
	}, 2*time.Hour))
}

func TestFlushMovesBufferedViewsToDurableCounters(t *testing.T) {
	db := newTestDB(t)
	seedCourse(t, db, "go-basics", true)
	buf := utils.NewMemoryVisitBuffer()
	job := NewVisitFlushJob(db, buf)

	recordView(t, buf, "go-basics", "session-1")
	recordView(t, buf, "go-basics", "session-2")
	recordView(t, buf, "go-basics", "session-2") // repeat view, same window

	require.NoError(t, job.Flush(context.Background()))

	course := loadCourse(t, db, "go-basics")
	assert.EqualValues(t, 2, course.CountUniqueViews)
	assert.EqualValues(t, 3, course.CountViews)

	var visitRows int64
	require.NoError(t, db.Model(&models.ContentVisit{}).Count(&visitRows).Error)
	assert.EqualValues(t, 2, visitRows)
}

func TestFlushClearsBufferKeys(t *testing.T) {
	db := newTestDB(t)
	seedCourse(t, db, "go-basics", true)
	buf := utils.NewMemoryVisitBuffer()
	job := NewVisitFlushJob(db, buf)

	recordView(t, buf, "go-basics", "session-1")
	require.NoError(t, job.Flush(context.Background()))

	events, keys, err := buf.DrainUniques(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Empty(t, keys)

	hits, keys, err := buf.DrainHits(context.Background())
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Empty(t, keys)
}

func TestFlushTwiceDoesNotDoubleCountUniques(t *testing.T) {
	db := newTestDB(t)
	seedCourse(t, db, "go-basics", true)
	buf := utils.NewMemoryVisitBuffer()
	job := NewVisitFlushJob(db, buf)

	recordView(t, buf, "go-basics", "session-1")
	require.NoError(t, job.Flush(context.Background()))

	// The same session comes back after its marker is gone; the durable
	// visit row keeps the unique counter exactly-once.
	recordView(t, buf, "go-basics", "session-1")
	require.NoError(t, job.Flush(context.Background()))

	course := loadCourse(t, db, "go-basics")
	assert.EqualValues(t, 1, course.CountUniqueViews)
	assert.EqualValues(t, 2, course.CountViews, "raw hits keep accumulating")
}

func TestFlushSkipsUnresolvableTargets(t *testing.T) {
	db := newTestDB(t)
	seedCourse(t, db, "go-basics", true)
	seedCourse(t, db, "hidden", false)
	buf := utils.NewMemoryVisitBuffer()
	job := NewVisitFlushJob(db, buf)

	recordView(t, buf, "go-basics", "session-1")
	recordView(t, buf, "hidden", "session-1")
	recordView(t, buf, "vanished", "session-1")

	require.NoError(t, job.Flush(context.Background()))

	course := loadCourse(t, db, "go-basics")
	assert.EqualValues(t, 1, course.CountUniqueViews)

	hidden := loadCourse(t, db, "hidden")
	assert.EqualValues(t, 0, hidden.CountUniqueViews)
	assert.EqualValues(t, 0, hidden.CountViews)

	var visitRows int64
	require.NoError(t, db.Model(&models.ContentVisit{}).Count(&visitRows).Error)
	assert.EqualValues(t, 1, visitRows, "only resolvable targets get visit rows")

	// Buffered data for skipped targets is dropped, not retried forever.
	events, _, err := buf.DrainUniques(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFlushGroupsIncrementsAcrossTargets(t *testing.T) {
	db := newTestDB(t)
	seedCourse(t, db, "course-a", true)
	seedCourse(t, db, "course-b", true)
	buf := utils.NewMemoryVisitBuffer()
	job := NewVisitFlushJob(db, buf)

	recordView(t, buf, "course-a", "s1")
	recordView(t, buf, "course-a", "s2")
	recordView(t, buf, "course-b", "s1")

	require.NoError(t, job.Flush(context.Background()))

	a := loadCourse(t, db, "course-a")
	b := loadCourse(t, db, "course-b")
	assert.EqualValues(t, 2, a.CountUniqueViews)
	assert.EqualValues(t, 2, a.CountViews)
	assert.EqualValues(t, 1, b.CountUniqueViews)
	assert.EqualValues(t, 1, b.CountViews)
}

func TestFlushEmptyBufferIsNoOp(t *testing.T) {
	db := newTestDB(t)
	seedCourse(t, db, "go-basics", true)
	buf := utils.NewMemoryVisitBuffer()
	job := NewVisitFlushJob(db, buf)

	require.NoError(t, job.Flush(context.Background()))

	course := loadCourse(t, db, "go-basics")
	assert.EqualValues(t, 0, course.CountUniqueViews)
	assert.EqualValues(t, 0, course.CountViews)
}

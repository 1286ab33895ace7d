package models

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createApproved(t *testing.T, db *gorm.DB, user User, slug, text string, parentID *uint) *Comment {
	t.Helper()
	comment, err := CreateComment(db, CreateCommentInput{
		TargetType: "course",
		TargetSlug: slug,
		UserID:     user.ID,
		Text:       text,
		ParentID:   parentID,
		Approved:   true,
	})
	require.NoError(t, err)
	return comment
}

func TestCreateCommentAggregatesViolations(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice")

	_, err := CreateComment(db, CreateCommentInput{
		TargetType: "user",
		TargetSlug: "whatever",
		UserID:     user.ID,
		Text:       "   ",
	})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "text")
	assert.Contains(t, verr.Fields, "model_type")
}

func TestCreateCommentPendingByDefault(t *testing.T) {
	db := newTestDB(t)
	seedCourse(t, db, "go-basics", true)
	user := seedUser(t, db, "alice")

	comment, err := CreateComment(db, CreateCommentInput{
		TargetType: "course",
		TargetSlug: "go-basics",
		UserID:     user.ID,
		Text:       "nice course",
	})
	require.NoError(t, err)
	assert.False(t, comment.IsApproved)
	assert.Nil(t, comment.ApprovedAt)
	assert.EqualValues(t, 0, courseCommentCount(t, db, "go-basics"),
		"pending comments are not counted")

	history, err := CommentHistoryFor(db, comment.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, HistoryCreated, history[0].Action)
}

func TestCreateCommentBornApprovedCountsOnce(t *testing.T) {
	db := newTestDB(t)
	seedCourse(t, db, "go-basics", true)
	admin := seedUser(t, db, "admin")

	comment := createApproved(t, db, admin, "go-basics", "welcome", nil)
	assert.True(t, comment.IsApproved)
	require.NotNil(t, comment.ApprovedAt)
	assert.EqualValues(t, 1, courseCommentCount(t, db, "go-basics"))

	history, err := CommentHistoryFor(db, comment.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, HistoryCreated, history[0].Action)
	assert.Equal(t, HistoryApproved, history[1].Action)
}

func TestReplyDepthLimitedToOneLevel(t *testing.T) {
	db := newTestDB(t)
	seedCourse(t, db, "go-basics", true)
	admin := seedUser(t, db, "admin")
	user := seedUser(t, db, "alice")

	top := createApproved(t, db, admin, "go-basics", "top", nil)
	reply := createApproved(t, db, admin, "go-basics", "reply", &top.ID)

	_, err := CreateComment(db, CreateCommentInput{
		TargetType: "course",
		TargetSlug: "go-basics",
		UserID:     user.ID,
		Text:       "reply to a reply",
		ParentID:   &reply.ID,
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "parent")
}

func TestReplyRequiresApprovedParent(t *testing.T) {
	db := newTestDB(t)
	seedCourse(t, db, "go-basics", true)
	user := seedUser(t, db, "alice")

	pending, err := CreateComment(db, CreateCommentInput{
		TargetType: "course",
		TargetSlug: "go-basics",
		UserID:     user.ID,
		Text:       "awaiting moderation",
	})
	require.NoError(t, err)

	_, err = CreateComment(db, CreateCommentInput{
		TargetType: "course",
		TargetSlug: "go-basics",
		UserID:     user.ID,
		Text:       "reply",
		ParentID:   &pending.ID,
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "parent")
}

func TestReplyParentMustShareTarget(t *testing.T) {
	db := newTestDB(t)
	seedCourse(t, db, "course-a", true)
	seedCourse(t, db, "course-b", true)
	admin := seedUser(t, db, "admin")

	parent := createApproved(t, db, admin, "course-a", "on a", nil)

	_, err := CreateComment(db, CreateCommentInput{
		TargetType: "course",
		TargetSlug: "course-b",
		UserID:     admin.ID,
		Text:       "wrong thread",
		ParentID:   &parent.ID,
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "parent")
}

func TestUnresolvableTargetDoesNotFlagValidParent(t *testing.T) {
	db := newTestDB(t)
	seedCourse(t, db, "go-basics", true)
	admin := seedUser(t, db, "admin")
	user := seedUser(t, db, "alice")

	parent := createApproved(t, db, admin, "go-basics", "top", nil)

	// The parent itself is fine; only the target reference is broken. The
	// aggregate error must not blame the parent for that.
	_, err := CreateComment(db, CreateCommentInput{
		TargetType: "user",
		TargetSlug: "go-basics",
		UserID:     user.ID,
		Text:       "reply",
		ParentID:   &parent.ID,
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "model_type")
	assert.NotContains(t, verr.Fields, "parent")
}

func TestSoftDeleteAuthorOnly(t *testing.T) {
	db := newTestDB(t)
	seedCourse(t, db, "go-basics", true)
	author := seedUser(t, db, "alice")
	intruder := seedUser(t, db, "mallory")

	comment := createApproved(t, db, author, "go-basics", "mine", nil)

	err := SoftDeleteComment(db, comment.ID, intruder.ID)
	assert.ErrorIs(t, err, ErrNotCommentAuthor)

	require.NoError(t, SoftDeleteComment(db, comment.ID, author.ID))

	var gone Comment
	err = db.First(&gone, comment.ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound, "soft-deleted comments leave default queries")

	err = SoftDeleteComment(db, comment.ID, author.ID)
	assert.ErrorIs(t, err, ErrCommentNotFound)
}

func TestSoftDeleteDecrementsCounterOnce(t *testing.T) {
	db := newTestDB(t)
	seedCourse(t, db, "go-basics", true)
	author := seedUser(t, db, "alice")

	comment := createApproved(t, db, author, "go-basics", "hello", nil)
	assert.EqualValues(t, 1, courseCommentCount(t, db, "go-basics"))

	require.NoError(t, SoftDeleteComment(db, comment.ID, author.ID))
	assert.EqualValues(t, 0, courseCommentCount(t, db, "go-basics"))
}

func TestDemoteThenDeleteDoesNotDoubleDecrement(t *testing.T) {
	db := newTestDB(t)
	seedCourse(t, db, "go-basics", true)
	author := seedUser(t, db, "alice")
	moderator := seedUser(t, db, "mod")

	comment := createApproved(t, db, author, "go-basics", "hello", nil)
	assert.EqualValues(t, 1, courseCommentCount(t, db, "go-basics"))

	_, err := DemoteComment(db, comment.ID, moderator.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, courseCommentCount(t, db, "go-basics"))

	require.NoError(t, SoftDeleteComment(db, comment.ID, author.ID))
	assert.EqualValues(t, 0, courseCommentCount(t, db, "go-basics"),
		"delete after demote must not decrement again")
}

func TestCommentCounterMatchesRecountUnderRandomOps(t *testing.T) {
	db := newTestDB(t)
	seedCourse(t, db, "go-basics", true)
	author := seedUser(t, db, "alice")
	moderator := seedUser(t, db, "mod")

	recount := func() int64 {
		var n int64
		require.NoError(t, db.Model(&Comment{}).
			Where("target_type = ? AND target_slug = ? AND is_approved = ?", "course", "go-basics", true).
			Count(&n).Error)
		return n
	}

	type trackedComment struct {
		id      uint
		deleted bool
	}
	var comments []trackedComment

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		op := rng.Intn(4)
		if len(comments) == 0 {
			op = 0
		}
		switch op {
		case 0:
			comment, err := CreateComment(db, CreateCommentInput{
				TargetType: "course",
				TargetSlug: "go-basics",
				UserID:     author.ID,
				Text:       "generated",
				Approved:   rng.Intn(2) == 0,
			})
			require.NoError(t, err)
			comments = append(comments, trackedComment{id: comment.ID})
		case 1:
			pick := &comments[rng.Intn(len(comments))]
			if !pick.deleted {
				_, err := ApproveComment(db, pick.id, moderator.ID)
				require.NoError(t, err)
			}
		case 2:
			pick := &comments[rng.Intn(len(comments))]
			if !pick.deleted {
				_, err := DemoteComment(db, pick.id, moderator.ID)
				require.NoError(t, err)
			}
		case 3:
			pick := &comments[rng.Intn(len(comments))]
			if !pick.deleted {
				require.NoError(t, SoftDeleteComment(db, pick.id, author.ID))
				pick.deleted = true
			}
		}

		require.Equal(t, recount(), courseCommentCount(t, db, "go-basics"),
			"count_comments diverged from a recount after op %d", i)
	}
}

func TestModerationHistoryTrail(t *testing.T) {
	db := newTestDB(t)
	seedCourse(t, db, "go-basics", true)
	author := seedUser(t, db, "alice")
	moderator := seedUser(t, db, "mod")

	comment, err := CreateComment(db, CreateCommentInput{
		TargetType: "course",
		TargetSlug: "go-basics",
		UserID:     author.ID,
		Text:       "hello",
	})
	require.NoError(t, err)

	_, err = ApproveComment(db, comment.ID, moderator.ID)
	require.NoError(t, err)
	_, err = DemoteComment(db, comment.ID, moderator.ID)
	require.NoError(t, err)
	require.NoError(t, SoftDeleteComment(db, comment.ID, author.ID))

	history, err := CommentHistoryFor(db, comment.ID)
	require.NoError(t, err)
	actions := make([]string, 0, len(history))
	for _, h := range history {
		actions = append(actions, h.Action)
	}
	assert.Equal(t, []string{HistoryCreated, HistoryApproved, HistoryDemoted, HistoryDeleted}, actions)
}

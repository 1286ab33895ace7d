package models

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultCommentPageSize = 50
	maxCommentPageSize     = 100
)

// CommentNode is one top-level comment with its flat reply list attached.
type CommentNode struct {
	Comment
	Replies []Comment
}

// CommentPage is one page of the nested comment feed for a target.
type CommentPage struct {
	Items      []CommentNode
	NextCursor string
}

type rankedComment struct {
	Comment  `gorm:"embedded"`
	Priority int `gorm:"column:priority"`
}

// commentCursor pins a position in the (priority, created_at, id) descending
// order. All three keys are immutable once a comment is ranked, so the cursor
// stays stable under concurrent inserts.
type commentCursor struct {
	Priority  int
	CreatedAt time.Time
	ID        uint
}

func encodeCursor(c commentCursor) string {
	raw := fmt.Sprintf("%d:%d:%d", c.Priority, c.CreatedAt.UnixNano(), c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(token string) (commentCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return commentCursor{}, fmt.Errorf("invalid cursor: %w", err)
	}
	parts := strings.Split(string(raw), ":")
	if len(parts) != 3 {
		return commentCursor{}, fmt.Errorf("invalid cursor")
	}
	prio, err1 := strconv.Atoi(parts[0])
	nanos, err2 := strconv.ParseInt(parts[1], 10, 64)
	id, err3 := strconv.ParseUint(parts[2], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return commentCursor{}, fmt.Errorf("invalid cursor")
	}
	return commentCursor{Priority: prio, CreatedAt: time.Unix(0, nanos), ID: uint(id)}, nil
}

// ListComments assembles one page of the approved comment feed for a target.
// For an authenticated requester, top-level comments they wrote or that carry
// one of their replies rank first, newest first within each bucket; replies
// rank the requester's own first. requesterID == 0 means anonymous.
func ListComments(db *gorm.DB, t Target, requesterID uint, cursorToken string, pageSize int) (*CommentPage, error) {
	if pageSize <= 0 {
		pageSize = defaultCommentPageSize
	}
	if pageSize > maxCommentPageSize {
		pageSize = maxCommentPageSize
	}

	prioExpr := "0"
	var prioArgs []interface{}
	if requesterID != 0 {
		prioExpr = "CASE WHEN comments.user_id = ? OR EXISTS (" +
			"SELECT 1 FROM comments AS r WHERE r.parent_id = comments.id AND r.user_id = ? AND r.deleted_at IS NULL" +
			") THEN 1 ELSE 0 END"
		prioArgs = []interface{}{requesterID, requesterID}
	}

	query := db.Model(&Comment{}).
		Select("comments.*, "+prioExpr+" AS priority", prioArgs...).
		Where("comments.target_type = ? AND comments.target_slug = ?", string(t.Kind), t.Slug).
		Where("comments.is_approved = ?", true).
		Where("comments.parent_id IS NULL")

	if cursorToken != "" {
		cursor, err := decodeCursor(cursorToken)
		if err != nil {
			verr := newValidationError()
			verr.add("cursor", "malformed cursor token")
			return nil, verr
		}
		cond := fmt.Sprintf(
			"(%s < ? OR (%s = ? AND (comments.created_at < ? OR (comments.created_at = ? AND comments.id < ?))))",
			prioExpr, prioExpr,
		)
		args := make([]interface{}, 0, len(prioArgs)*2+5)
		args = append(args, prioArgs...)
		args = append(args, cursor.Priority)
		args = append(args, prioArgs...)
		args = append(args, cursor.Priority, cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
		query = query.Where(cond, args...)
	}

	var ranked []rankedComment
	err := query.
		Order("priority DESC, comments.created_at DESC, comments.id DESC").
		Limit(pageSize + 1).
		Scan(&ranked).Error
	if err != nil {
		return nil, err
	}

	page := &CommentPage{}
	if len(ranked) > pageSize {
		last := ranked[pageSize-1]
		page.NextCursor = encodeCursor(commentCursor{
			Priority:  last.Priority,
			CreatedAt: last.CreatedAt,
			ID:        last.Comment.ID,
		})
		ranked = ranked[:pageSize]
	}
	if len(ranked) == 0 {
		return page, nil
	}

	parentIDs := make([]uint, 0, len(ranked))
	for _, rc := range ranked {
		parentIDs = append(parentIDs, rc.Comment.ID)
	}
	replies, err := listReplies(db, parentIDs, requesterID)
	if err != nil {
		return nil, err
	}

	byParent := make(map[uint][]Comment, len(parentIDs))
	for _, reply := range replies {
		byParent[*reply.ParentID] = append(byParent[*reply.ParentID], reply)
	}
	for _, rc := range ranked {
		page.Items = append(page.Items, CommentNode{
			Comment: rc.Comment,
			Replies: byParent[rc.Comment.ID],
		})
	}
	return page, nil
}

// listReplies loads the approved replies of a set of top-level comments in a
// single query, requester's own replies first, then newest first.
func listReplies(db *gorm.DB, parentIDs []uint, requesterID uint) ([]Comment, error) {
	query := db.
		Where("parent_id IN ?", parentIDs).
		Where("is_approved = ?", true)
	if requesterID != 0 {
		query = query.Clauses(clause.OrderBy{Expression: clause.Expr{
			SQL:                "CASE WHEN user_id = ? THEN 1 ELSE 0 END DESC, created_at DESC, id DESC",
			Vars:               []interface{}{requesterID},
			WithoutParentheses: true,
		}})
	} else {
		query = query.Order("created_at DESC, id DESC")
	}
	var replies []Comment
	if err := query.Find(&replies).Error; err != nil {
		return nil, err
	}
	return replies, nil
}

// LoadCommentAuthors fetches the author rows for a page of comments in one
// query and returns them keyed by user id.
func LoadCommentAuthors(db *gorm.DB, page *CommentPage) (map[uint]User, error) {
	var ids []uint
	for _, node := range page.Items {
		ids = append(ids, node.UserID)
		for _, reply := range node.Replies {
			ids = append(ids, reply.UserID)
		}
	}
	authors := map[uint]User{}
	if len(ids) == 0 {
		return authors, nil
	}
	var users []User
	if err := db.Find(&users, uniqueUint(ids)).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		authors[u.ID] = u
	}
	return authors, nil
}

// uniqueUint removes duplicate values from a slice of uints.
func uniqueUint(slice []uint) []uint {
	seen := make(map[uint]bool, len(slice))
	list := make([]uint, 0, len(slice))
	for _, entry := range slice {
		if !seen[entry] {
			seen[entry] = true
			list = append(list, entry)
		}
	}
	return list
}

package models

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// TargetKind names a content model that may receive comments and visits.
// The set is closed: adding a kind means adding a case to every switch below,
// which the compiler will point out.
type TargetKind string

const (
	TargetCourse  TargetKind = "course"
	TargetArticle TargetKind = "article"
)

// ErrTargetNotFound is returned for a disallowed kind, an unknown slug, or an
// entity that is unpublished or deleted. Callers must not distinguish these
// cases towards clients.
var ErrTargetNotFound = errors.New("target not found")

// Target is a resolved reference to a commentable entity.
type Target struct {
	Kind TargetKind
	Slug string
}

// ParseTargetKind validates a client supplied type name against the allow-list.
func ParseTargetKind(s string) (TargetKind, bool) {
	switch TargetKind(strings.ToLower(strings.TrimSpace(s))) {
	case TargetCourse:
		return TargetCourse, true
	case TargetArticle:
		return TargetArticle, true
	}
	return "", false
}

// targetModel returns the gorm model for a kind.
func targetModel(k TargetKind) interface{} {
	switch k {
	case TargetCourse:
		return &Course{}
	case TargetArticle:
		return &Article{}
	}
	return nil
}

// ResolveTarget maps a (type, slug) pair to a Target handle. Only published,
// non-deleted entities of an allow-listed kind resolve; everything else is
// ErrTargetNotFound.
func ResolveTarget(db *gorm.DB, typeName, slug string) (Target, error) {
	kind, ok := ParseTargetKind(typeName)
	if !ok {
		return Target{}, ErrTargetNotFound
	}
	var count int64
	err := db.Model(targetModel(kind)).
		Where("slug = ? AND is_published = ? AND is_deleted = ?", slug, true, false).
		Count(&count).Error
	if err != nil {
		return Target{}, err
	}
	if count == 0 {
		return Target{}, ErrTargetNotFound
	}
	return Target{Kind: kind, Slug: slug}, nil
}

// AdjustCommentCount applies a relative delta to the target's count_comments
// column. The update is a single atomic SQL statement so concurrent moderation
// actions cannot lose increments.
func AdjustCommentCount(db *gorm.DB, t Target, delta int) error {
	return db.Model(targetModel(t.Kind)).
		Where("slug = ?", t.Slug).
		UpdateColumn("count_comments", gorm.Expr("count_comments + ?", delta)).Error
}

// LoadCommentCount reads the current count_comments for a target.
func LoadCommentCount(db *gorm.DB, t Target) (int64, error) {
	var count int64
	err := db.Model(targetModel(t.Kind)).
		Where("slug = ?", t.Slug).
		Select("count_comments").
		Scan(&count).Error
	return count, err
}

// IncrementViewCounts applies per-slug relative increments to count_views for
// one kind in a single conditional bulk update. Unpublished or deleted rows
// are left untouched.
func IncrementViewCounts(db *gorm.DB, kind TargetKind, increments map[string]int64) error {
	return incrementCounterColumn(db, kind, "count_views", increments)
}

// IncrementUniqueViewCounts is the count_unique_views counterpart of
// IncrementViewCounts.
func IncrementUniqueViewCounts(db *gorm.DB, kind TargetKind, increments map[string]int64) error {
	return incrementCounterColumn(db, kind, "count_unique_views", increments)
}

func incrementCounterColumn(db *gorm.DB, kind TargetKind, column string, increments map[string]int64) error {
	if len(increments) == 0 {
		return nil
	}
	slugs := make([]string, 0, len(increments))
	var b strings.Builder
	args := make([]interface{}, 0, len(increments)*2)
	b.WriteString("CASE slug")
	for slug, inc := range increments {
		slugs = append(slugs, slug)
		b.WriteString(fmt.Sprintf(" WHEN ? THEN %s + ?", column))
		args = append(args, slug, inc)
	}
	b.WriteString(fmt.Sprintf(" ELSE %s END", column))

	return db.Model(targetModel(kind)).
		Where("slug IN ? AND is_published = ? AND is_deleted = ?", slugs, true, false).
		UpdateColumn(column, gorm.Expr(b.String(), args...)).Error
}

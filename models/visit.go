package models

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContentVisit durably records that one visitor session has been counted
// toward one target's unique-view total. The composite unique index makes the
// aggregation job idempotent: re-inserting an existing triple is ignored, not
// an error.
type ContentVisit struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TargetType string    `gorm:"size:32;not null;uniqueIndex:idx_visits_triple" json:"target_type"`
	TargetSlug string    `gorm:"size:191;not null;uniqueIndex:idx_visits_triple" json:"target_slug"`
	SessionKey string    `gorm:"size:40;not null;uniqueIndex:idx_visits_triple" json:"session_key"`
	CreatedAt  time.Time `json:"created_at"`
}

// VisitTriple identifies one visitor session on one target.
type VisitTriple struct {
	TargetType string
	TargetSlug string
	SessionKey string
}

// FilterExistingVisits returns the subset of triples already present in the
// durable table.
func FilterExistingVisits(db *gorm.DB, triples []VisitTriple) (map[VisitTriple]bool, error) {
	existing := map[VisitTriple]bool{}
	if len(triples) == 0 {
		return existing, nil
	}
	cond := db.Where("target_type = ? AND target_slug = ? AND session_key = ?",
		triples[0].TargetType, triples[0].TargetSlug, triples[0].SessionKey)
	for _, t := range triples[1:] {
		cond = cond.Or("target_type = ? AND target_slug = ? AND session_key = ?",
			t.TargetType, t.TargetSlug, t.SessionKey)
	}
	var rows []ContentVisit
	if err := db.Model(&ContentVisit{}).Where(cond).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		existing[VisitTriple{row.TargetType, row.TargetSlug, row.SessionKey}] = true
	}
	return existing, nil
}

// InsertVisitsIgnoreConflicts bulk-inserts visit rows, silently skipping any
// triple a concurrent flush run recorded first.
func InsertVisitsIgnoreConflicts(db *gorm.DB, visits []ContentVisit) error {
	if len(visits) == 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&visits).Error
}

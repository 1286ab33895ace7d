package tasks

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/arvand/learnhub/models"
	"github.com/arvand/learnhub/utils"
)

// VisitFlushJob moves buffered view data into durable storage: one visit row
// and one unique-view increment per new (target, session) pair, plus the
// accumulated raw hit counts. Buffer keys are deleted only after the database
// writes succeed, so a crash mid-flush re-counts raw hits on the next run
// while unique views stay exactly-once thanks to the visit table's unique
// index.
type VisitFlushJob struct {
	db  *gorm.DB
	buf utils.VisitBuffer
}

// NewVisitFlushJob creates a VisitFlushJob.
func NewVisitFlushJob(db *gorm.DB, buf utils.VisitBuffer) *VisitFlushJob {
	return &VisitFlushJob{db: db, buf: buf}
}

// Name identifies the job in logs.
func (j *VisitFlushJob) Name() string { return "visit_flush" }

// Run implements cron.Job.
func (j *VisitFlushJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := j.Flush(ctx); err != nil {
		if utils.Sugar != nil {
			utils.Sugar.Errorw("visit flush failed", "err", err)
		}
	}
}

// Flush drains the buffer and applies its effects.
func (j *VisitFlushJob) Flush(ctx context.Context) error {
	resolveCache := map[utils.TargetRef]bool{}

	events, uniqueKeys, err := j.buf.DrainUniques(ctx)
	if err != nil {
		return err
	}

	seen := map[models.VisitTriple]bool{}
	var triples []models.VisitTriple
	for _, ev := range events {
		triple := models.VisitTriple{
			TargetType: ev.TargetType,
			TargetSlug: ev.TargetSlug,
			SessionKey: ev.SessionKey,
		}
		if seen[triple] {
			continue
		}
		seen[triple] = true
		if !j.targetExists(resolveCache, utils.TargetRef{TargetType: ev.TargetType, TargetSlug: ev.TargetSlug}) {
			continue
		}
		triples = append(triples, triple)
	}

	if len(triples) > 0 {
		existing, err := models.FilterExistingVisits(j.db, triples)
		if err != nil {
			return err
		}

		var fresh []models.ContentVisit
		increments := map[utils.TargetRef]int64{}
		for _, triple := range triples {
			if existing[triple] {
				continue
			}
			fresh = append(fresh, models.ContentVisit{
				TargetType: triple.TargetType,
				TargetSlug: triple.TargetSlug,
				SessionKey: triple.SessionKey,
			})
			increments[utils.TargetRef{TargetType: triple.TargetType, TargetSlug: triple.TargetSlug}]++
		}

		if len(fresh) > 0 {
			if err := models.InsertVisitsIgnoreConflicts(j.db, fresh); err != nil {
				return err
			}
			if err := j.applyCounters(increments, models.IncrementUniqueViewCounts); err != nil {
				return err
			}
		}
	}

	hits, hitKeys, err := j.buf.DrainHits(ctx)
	if err != nil {
		return err
	}
	hitIncrements := map[utils.TargetRef]int64{}
	for ref, count := range hits {
		if !j.targetExists(resolveCache, ref) {
			continue
		}
		hitIncrements[ref] = count
	}
	if err := j.applyCounters(hitIncrements, models.IncrementViewCounts); err != nil {
		return err
	}

	keys := append(uniqueKeys, hitKeys...)
	if err := j.buf.Clear(ctx, keys); err != nil {
		return err
	}

	if utils.Sugar != nil && (len(triples) > 0 || len(hitIncrements) > 0) {
		utils.Sugar.Infow("visit flush completed",
			"unique_events", len(triples),
			"hit_targets", len(hitIncrements),
			"cleared_keys", len(keys),
		)
	}
	return nil
}

// targetExists resolves a target once per flush run; unresolvable or
// unpublished targets are logged and their buffered views dropped.
func (j *VisitFlushJob) targetExists(cache map[utils.TargetRef]bool, ref utils.TargetRef) bool {
	if ok, hit := cache[ref]; hit {
		return ok
	}
	_, err := models.ResolveTarget(j.db, ref.TargetType, ref.TargetSlug)
	switch {
	case err == nil:
		cache[ref] = true
		return true
	case errors.Is(err, models.ErrTargetNotFound):
		if utils.Sugar != nil {
			utils.Sugar.Warnw("skipping buffered views for unresolvable target",
				"target_type", ref.TargetType, "target_slug", ref.TargetSlug)
		}
		cache[ref] = false
		return false
	default:
		if utils.Sugar != nil {
			utils.Sugar.Errorw("failed to resolve buffered view target",
				"target_type", ref.TargetType, "target_slug", ref.TargetSlug, "err", err)
		}
		cache[ref] = false
		return false
	}
}

// applyCounters groups increments per target kind and issues one bulk update
// per kind and counter column.
func (j *VisitFlushJob) applyCounters(increments map[utils.TargetRef]int64, apply func(*gorm.DB, models.TargetKind, map[string]int64) error) error {
	byKind := map[models.TargetKind]map[string]int64{}
	for ref, count := range increments {
		kind, ok := models.ParseTargetKind(ref.TargetType)
		if !ok {
			continue
		}
		if byKind[kind] == nil {
			byKind[kind] = map[string]int64{}
		}
		byKind[kind][ref.TargetSlug] += count
	}
	for kind, slugCounts := range byKind {
		if err := apply(j.db, kind, slugCounts); err != nil {
			return err
		}
	}
	return nil
}

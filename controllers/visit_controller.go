package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arvand/learnhub/config"
	"github.com/arvand/learnhub/models"
	"github.com/arvand/learnhub/utils"
)

const sessionCookieName = "session_id"

// VisitController records content views into the ephemeral buffer. Durable
// counters are updated later by the periodic flush job; this hot path never
// touches the database, so view recording stays up during storage outages.
type VisitController struct {
	buf utils.VisitBuffer
}

// NewVisitController creates a VisitController.
func NewVisitController(buf utils.VisitBuffer) *VisitController {
	return &VisitController{buf: buf}
}

// TrackView buffers one view of a target by the current browser session.
// Anonymous visitors are tracked too; a session cookie is minted on first
// contact. The slug is only allow-list checked here; views of targets that
// turn out to be unresolvable are dropped by the flush job.
func (v *VisitController) TrackView(ctx *gin.Context) {
	kind, ok := models.ParseTargetKind(ctx.Param("target_type"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40430, "unknown target type")
		return
	}
	slug := strings.TrimSpace(ctx.Param("target_slug"))
	if slug == "" {
		utils.Error(ctx, http.StatusNotFound, 40431, "target not found")
		return
	}

	sessionKey, err := ctx.Cookie(sessionCookieName)
	if err != nil || strings.TrimSpace(sessionKey) == "" {
		sessionKey = uuid.NewString()
		ctx.SetCookie(sessionCookieName, sessionKey, int((365 * 24 * time.Hour).Seconds()), "/", "", false, true)
	}

	ttl := time.Duration(config.Get().VisitTTLMinutes) * time.Minute
	reqCtx := ctx.Request.Context()

	if err := v.buf.RecordUnique(reqCtx, utils.VisitEvent{
		TargetType: string(kind),
		TargetSlug: slug,
		SessionKey: sessionKey,
	}, ttl); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to record view")
		return
	}

	if err := v.buf.RecordHit(reqCtx, utils.TargetRef{
		TargetType: string(kind),
		TargetSlug: slug,
	}, ttl); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to record view")
		return
	}

	utils.Success(ctx, gin.H{"recorded": true})
}

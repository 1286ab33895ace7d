package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvand/learnhub/utils"
)

func newVisitRouter(buf utils.VisitBuffer) *gin.Engine {
	r := gin.New()
	r.POST("/targets/:target_type/:target_slug/visit", NewVisitController(buf).TrackView)
	return r
}

func TestTrackViewRecordsWithoutDurableStore(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	buf := utils.NewMemoryVisitBuffer()
	r := newVisitRouter(buf)

	// No database exists at all; only the ephemeral buffer is touched.
	req := httptest.NewRequest(http.MethodPost, "/targets/course/go-basics/visit", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	events, _, err := buf.DrainUniques(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "course", events[0].TargetType)
	assert.Equal(t, "go-basics", events[0].TargetSlug)
	assert.NotEmpty(t, events[0].SessionKey)

	hits, _, err := buf.DrainHits(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits[utils.TargetRef{TargetType: "course", TargetSlug: "go-basics"}])

	cookie := w.Header().Get("Set-Cookie")
	assert.True(t, strings.HasPrefix(cookie, sessionCookieName+"="),
		"first contact mints a session cookie")
}

func TestTrackViewReusesSessionCookie(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	buf := utils.NewMemoryVisitBuffer()
	r := newVisitRouter(buf)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/targets/course/go-basics/visit", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "known-session"})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Set-Cookie"), "existing session keeps its cookie")
	}

	events, _, err := buf.DrainUniques(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1, "one uniqueness marker per session and target")

	hits, _, err := buf.DrainHits(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits[utils.TargetRef{TargetType: "course", TargetSlug: "go-basics"}])
}

func TestTrackViewRejectsUnknownKind(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	buf := utils.NewMemoryVisitBuffer()
	r := newVisitRouter(buf)

	req := httptest.NewRequest(http.MethodPost, "/targets/user/alice/visit", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	events, _, err := buf.DrainUniques(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events, "disallowed kinds never reach the buffer")
}

func TestTrackViewBuffersUnresolvableSlugForFlushToDrop(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	buf := utils.NewMemoryVisitBuffer()
	r := newVisitRouter(buf)

	// A slug no published entity carries is still accepted here; the flush
	// job resolves and drops it later.
	req := httptest.NewRequest(http.MethodPost, "/targets/course/no-such-course/visit", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	events, _, err := buf.DrainUniques(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

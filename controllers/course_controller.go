package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/arvand/learnhub/models"
	"github.com/arvand/learnhub/utils"
)

const courseListCachePrefix = "cache:courses:list"

// CourseController manages the course catalog.
type CourseController struct {
	db *gorm.DB
}

// NewCourseController creates a CourseController.
func NewCourseController(db *gorm.DB) *CourseController {
	return &CourseController{db: db}
}

// Create registers a new course owned by the authenticated teacher.
func (c *CourseController) Create(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var req struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		Status      string `json:"status"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40011, "title must not be empty")
		return
	}

	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = models.CourseUpcoming
	}
	if !models.ValidCourseStatus(status) {
		utils.Error(ctx, http.StatusBadRequest, 40012, "invalid course status")
		return
	}

	slug := utils.Slugify(title)
	var existing models.Course
	if err := c.db.Where("slug = ?", slug).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40910, "a course with this title already exists")
		return
	}

	course := models.Course{
		Title:       title,
		Slug:        slug,
		Description: utils.Sanitize(req.Description),
		Status:      status,
		TeacherID:   userID,
	}

	if err := c.db.Create(&course).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to create course")
		return
	}

	utils.InvalidateByPrefix(courseListCachePrefix)
	utils.Created(ctx, course)
}

// List returns published courses, newest first.
func (c *CourseController) List(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx)

	cacheKey := courseListCachePrefix + ":" + strconv.Itoa(page) + ":" + strconv.Itoa(pageSize)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var total int64
	query := c.db.Model(&models.Course{}).Where("is_published = ? AND is_deleted = ?", true, false)
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to count courses")
		return
	}

	var courses []models.Course
	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&courses).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to retrieve courses")
		return
	}

	payload := gin.H{
		"items": courses,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
	utils.CacheSetJSON(cacheKey, wrapper, 5*time.Minute)
	utils.Success(ctx, payload)
}

// Get returns one published course by slug.
func (c *CourseController) Get(ctx *gin.Context) {
	slug := strings.TrimSpace(ctx.Param("slug"))
	var course models.Course
	err := c.db.Preload("Teacher").
		Where("slug = ? AND is_published = ? AND is_deleted = ?", slug, true, false).
		First(&course).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40420, "course not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to get course")
		return
	}
	utils.Success(ctx, course)
}

// Publish marks a course visible to readers. Admin only.
func (c *CourseController) Publish(ctx *gin.Context) {
	if !isAdminRequest(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40310, "admin privileges required")
		return
	}

	var course models.Course
	if err := c.db.First(&course, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40420, "course not found")
		return
	}

	if err := c.db.Model(&course).UpdateColumn("is_published", true).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to publish course")
		return
	}

	utils.InvalidateByPrefix(courseListCachePrefix)
	utils.Success(ctx, gin.H{"id": course.ID, "is_published": true})
}

// Delete soft-deletes a course. Admin only.
func (c *CourseController) Delete(ctx *gin.Context) {
	if !isAdminRequest(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40310, "admin privileges required")
		return
	}

	var course models.Course
	if err := c.db.First(&course, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40420, "course not found")
		return
	}

	if err := c.db.Model(&course).UpdateColumn("is_deleted", true).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50015, "failed to delete course")
		return
	}

	utils.InvalidateByPrefix(courseListCachePrefix)
	ctx.Status(http.StatusNoContent)
}

func parsePagination(ctx *gin.Context) (int, int) {
	page, pageSize := 1, 10
	if v := strings.TrimSpace(ctx.Query("page")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := strings.TrimSpace(ctx.Query("page_size")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			pageSize = n
		}
	}
	return page, pageSize
}

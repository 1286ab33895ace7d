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

const articleListCachePrefix = "cache:articles:list"

// ArticleController manages the article catalog.
type ArticleController struct {
	db *gorm.DB
}

// NewArticleController creates an ArticleController.
func NewArticleController(db *gorm.DB) *ArticleController {
	return &ArticleController{db: db}
}

// Create stores a new article owned by the authenticated author.
func (a *ArticleController) Create(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var req struct {
		Title string `json:"title" binding:"required"`
		Body  string `json:"body"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "title must not be empty")
		return
	}

	slug := utils.Slugify(title)
	var existing models.Article
	if err := a.db.Where("slug = ?", slug).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40911, "an article with this title already exists")
		return
	}

	article := models.Article{
		Title:    title,
		Slug:     slug,
		Body:     utils.Sanitize(req.Body),
		AuthorID: userID,
	}

	if err := a.db.Create(&article).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create article")
		return
	}

	utils.InvalidateByPrefix(articleListCachePrefix)
	utils.Created(ctx, article)
}

// List returns published articles, newest first.
func (a *ArticleController) List(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx)

	cacheKey := articleListCachePrefix + ":" + strconv.Itoa(page) + ":" + strconv.Itoa(pageSize)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var total int64
	query := a.db.Model(&models.Article{}).Where("is_published = ? AND is_deleted = ?", true, false)
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to count articles")
		return
	}

	var articles []models.Article
	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&articles).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to retrieve articles")
		return
	}

	payload := gin.H{
		"items": articles,
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

// Get returns one published article by slug.
func (a *ArticleController) Get(ctx *gin.Context) {
	slug := strings.TrimSpace(ctx.Param("slug"))
	var article models.Article
	err := a.db.Preload("Author").
		Where("slug = ? AND is_published = ? AND is_deleted = ?", slug, true, false).
		First(&article).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40421, "article not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to get article")
		return
	}
	utils.Success(ctx, article)
}

// Publish marks an article visible to readers. Admin only.
func (a *ArticleController) Publish(ctx *gin.Context) {
	if !isAdminRequest(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40310, "admin privileges required")
		return
	}

	var article models.Article
	if err := a.db.First(&article, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40421, "article not found")
		return
	}

	if err := a.db.Model(&article).UpdateColumn("is_published", true).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to publish article")
		return
	}

	utils.InvalidateByPrefix(articleListCachePrefix)
	utils.Success(ctx, gin.H{"id": article.ID, "is_published": true})
}

// Delete soft-deletes an article. Admin only.
func (a *ArticleController) Delete(ctx *gin.Context) {
	if !isAdminRequest(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40310, "admin privileges required")
		return
	}

	var article models.Article
	if err := a.db.First(&article, ctx.Param("id")).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40421, "article not found")
		return
	}

	if err := a.db.Model(&article).UpdateColumn("is_deleted", true).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to delete article")
		return
	}

	utils.InvalidateByPrefix(articleListCachePrefix)
	ctx.Status(http.StatusNoContent)
}

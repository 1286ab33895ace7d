package controllers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/arvand/learnhub/models"
	"github.com/arvand/learnhub/utils"
)

// StatsController provides site-wide aggregate counts.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate statistics for the site.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var userCount int64
	var courseCount int64
	var articleCount int64
	var commentCount int64

	if err := s.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		userCount = 0
	}

	if err := s.db.Model(&models.Course{}).
		Where("is_published = ? AND is_deleted = ?", true, false).
		Count(&courseCount).Error; err != nil {
		courseCount = 0
	}

	if err := s.db.Model(&models.Article{}).
		Where("is_published = ? AND is_deleted = ?", true, false).
		Count(&articleCount).Error; err != nil {
		articleCount = 0
	}

	if err := s.db.Model(&models.Comment{}).
		Where("is_approved = ?", true).
		Count(&commentCount).Error; err != nil {
		commentCount = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":    userCount,
		"course_count":  courseCount,
		"article_count": articleCount,
		"comment_count": commentCount,
	})
}

package webserver

import (
	"errors"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"

	"github.com/branchline/branchline/src/api/timeline"
	"github.com/branchline/branchline/src/api/types"
)

type Chapters struct {
	db        *gorm.DB
	sanitizer *bluemonday.Policy
}

func NewChapters(db *gorm.DB) Chapters {
	return Chapters{db: db, sanitizer: newContentPolicy()}
}

func parseID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"err": "not found"})
		return 0, false
	}
	return id, true
}

func (h Chapters) List(c *gin.Context) {
	var chs []types.Chapter
	err := h.db.
		Preload("Entries", timeline.OrderEvents).
		Preload("BranchEntries", timeline.OrderEvents).
		Preload("Periods", timeline.OrderChapters).
		Where("user_id = ?", userID(c)).
		Order(timeline.ChapterOrder).
		Find(&chs).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	if chs == nil {
		chs = []types.Chapter{}
	}
	timeline.Normalize(chs)
	c.JSON(http.StatusOK, chs)
}

func (h Chapters) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var ch types.Chapter
	err := h.db.
		Preload("Entries", timeline.OrderEvents).
		Preload("BranchEntries", timeline.OrderEvents).
		Preload("Periods", timeline.OrderChapters).
		First(&ch, "id = ? AND user_id = ?", id, userID(c)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"err": "not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	timeline.NormalizeChapter(&ch)
	c.JSON(http.StatusOK, ch)
}

func (h Chapters) Create(c *gin.Context) {
	var req struct {
		Type          string  `json:"type" binding:"required,oneof=main_period branch branch_period"`
		Title         string  `json:"title" binding:"required,max=255"`
		Description   string  `json:"description" binding:"max=20000"`
		StartDate     string  `json:"start_date" binding:"required,datetime=2006-01-02"`
		EndDate       string  `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
		Color         string  `json:"color" binding:"omitempty,hexcolor"`
		XPosition     int     `json:"x_position"`
		ParentBranch  *uint64 `json:"parent_branch"`
		SourceEntry   *uint64 `json:"source_entry"`
		SourceChapter *uint64 `json:"source_chapter"`
		Collapsed     bool    `json:"collapsed"`
		Order         int     `json:"order"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if !utf8.ValidString(req.Title) || !utf8.ValidString(req.Description) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid characters in input"})
		return
	}

	uid := userID(c)

	// Owner comes from the token, never the payload.
	ch := types.Chapter{
		UserID:          uid,
		Type:            req.Type,
		Title:           req.Title,
		Description:     h.sanitizer.Sanitize(req.Description),
		XPosition:       req.XPosition,
		ParentBranchID:  req.ParentBranch,
		SourceEntryID:   req.SourceEntry,
		SourceChapterID: req.SourceChapter,
		Collapsed:       req.Collapsed,
		Order:           req.Order,
	}
	ch.StartDate, _ = types.ParseDate(req.StartDate)
	if req.EndDate != "" {
		end, _ := types.ParseDate(req.EndDate)
		ch.EndDate = &end
	}
	if req.Color != "" {
		ch.Color = req.Color
	}

	if !h.sourceRefsValid(c, uid, ch.SourceEntryID, ch.SourceChapterID) {
		return
	}
	if err := timeline.ValidateChapter(h.db, &ch); err != nil {
		h.rejectHierarchy(c, err)
		return
	}

	if err := h.db.Create(&ch).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	timeline.NormalizeChapter(&ch)
	c.JSON(http.StatusCreated, ch)
}

func (h Chapters) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req struct {
		Type          *string    `json:"type" binding:"omitempty,oneof=main_period branch branch_period"`
		Title         *string    `json:"title" binding:"omitempty,max=255"`
		Description   *string    `json:"description" binding:"omitempty,max=20000"`
		StartDate     *string    `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
		EndDate       *string    `json:"end_date" binding:"omitempty"`
		Color         *string    `json:"color" binding:"omitempty,hexcolor"`
		XPosition     *int       `json:"x_position"`
		ParentBranch  nullableID `json:"parent_branch"`
		SourceEntry   nullableID `json:"source_entry"`
		SourceChapter nullableID `json:"source_chapter"`
		Collapsed     *bool      `json:"collapsed"`
		Order         *int       `json:"order"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	uid := userID(c)
	var ch types.Chapter
	err := h.db.First(&ch, "id = ? AND user_id = ?", id, uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"err": "not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	if req.Title != nil {
		if !utf8.ValidString(*req.Title) {
			c.JSON(http.StatusBadRequest, gin.H{"err": "invalid characters in input"})
			return
		}
		ch.Title = *req.Title
	}
	if req.Description != nil {
		if !utf8.ValidString(*req.Description) {
			c.JSON(http.StatusBadRequest, gin.H{"err": "invalid characters in input"})
			return
		}
		ch.Description = h.sanitizer.Sanitize(*req.Description)
	}
	if req.Type != nil {
		ch.Type = *req.Type
	}
	if req.StartDate != nil {
		ch.StartDate, _ = types.ParseDate(*req.StartDate)
	}
	if req.EndDate != nil {
		// Empty string clears the end date back to open-ended.
		if *req.EndDate == "" {
			ch.EndDate = nil
		} else {
			end, perr := types.ParseDate(*req.EndDate)
			if perr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"err": "end_date must be YYYY-MM-DD"})
				return
			}
			ch.EndDate = &end
		}
	}
	if req.Color != nil {
		ch.Color = *req.Color
	}
	if req.XPosition != nil {
		ch.XPosition = *req.XPosition
	}
	// Explicit null clears a reference; an omitted field leaves it alone.
	if req.ParentBranch.set {
		ch.ParentBranchID = req.ParentBranch.id
	}
	if req.Type != nil && *req.Type != types.ChapterBranchPeriod {
		// Leaving branch_period implies leaving the parent behind.
		ch.ParentBranchID = nil
	}
	if req.SourceEntry.set {
		ch.SourceEntryID = req.SourceEntry.id
	}
	if req.SourceChapter.set {
		ch.SourceChapterID = req.SourceChapter.id
	}
	if req.Collapsed != nil {
		ch.Collapsed = *req.Collapsed
	}
	if req.Order != nil {
		ch.Order = *req.Order
	}

	if !h.sourceRefsValid(c, uid, ch.SourceEntryID, ch.SourceChapterID) {
		return
	}
	if err := timeline.ValidateChapter(h.db, &ch); err != nil {
		h.rejectHierarchy(c, err)
		return
	}

	if err := h.db.Save(&ch).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	timeline.NormalizeChapter(&ch)
	c.JSON(http.StatusOK, ch)
}

func (h Chapters) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	err := timeline.DeleteChapter(h.db, userID(c), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"err": "not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// sourceRefsValid checks that provenance references point at the caller's own
// rows. Writes the rejection itself and returns false when they do not.
func (h Chapters) sourceRefsValid(c *gin.Context, uid uint64, entryID, chapterID *uint64) bool {
	if entryID != nil {
		var ev types.Event
		if err := h.db.First(&ev, "id = ? AND user_id = ?", *entryID, uid).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"err": "source_entry not found"})
			return false
		}
	}
	if chapterID != nil {
		var src types.Chapter
		if err := h.db.First(&src, "id = ? AND user_id = ?", *chapterID, uid).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"err": "source_chapter not found"})
			return false
		}
	}
	return true
}

func (h Chapters) rejectHierarchy(c *gin.Context, err error) {
	if timeline.IsValidationErr(err) {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
}

package webserver

import (
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"

	"github.com/branchline/branchline/src/api/timeline"
	"github.com/branchline/branchline/src/api/types"
)

type Events struct {
	db        *gorm.DB
	sanitizer *bluemonday.Policy
}

func NewEvents(db *gorm.DB) Events {
	return Events{db: db, sanitizer: newContentPolicy()}
}

func (h Events) List(c *gin.Context) {
	var evs []types.Event
	err := h.db.
		Where("user_id = ?", userID(c)).
		Order(timeline.EventOrder).
		Find(&evs).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	if evs == nil {
		evs = []types.Event{}
	}
	c.JSON(http.StatusOK, evs)
}

func (h Events) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var ev types.Event
	err := h.db.First(&ev, "id = ? AND user_id = ?", id, userID(c)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"err": "not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h Events) Create(c *gin.Context) {
	var req struct {
		Title   string  `json:"title" binding:"required,max=255"`
		Date    string  `json:"date" binding:"required,datetime=2006-01-02"`
		Preview string  `json:"preview" binding:"max=512"`
		Content string  `json:"content" binding:"max=50000"`
		Chapter *uint64 `json:"chapter"`
		Branch  *uint64 `json:"branch"`
		Order   int     `json:"order"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if !utf8.ValidString(req.Title) || !utf8.ValidString(req.Content) || !utf8.ValidString(req.Preview) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid characters in input"})
		return
	}

	uid := userID(c)
	if !h.attachmentValid(c, uid, req.Chapter, req.Branch) {
		return
	}

	// Owner comes from the token, never the payload.
	ev := types.Event{
		UserID:    uid,
		Title:     req.Title,
		Preview:   h.sanitizer.Sanitize(req.Preview),
		Content:   h.sanitizer.Sanitize(req.Content),
		ChapterID: req.Chapter,
		BranchID:  req.Branch,
		Order:     req.Order,
	}
	ev.Date, _ = types.ParseDate(req.Date)

	if err := h.db.Create(&ev).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, ev)
}

func (h Events) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req struct {
		Title   *string    `json:"title" binding:"omitempty,max=255"`
		Date    *string    `json:"date" binding:"omitempty,datetime=2006-01-02"`
		Preview *string    `json:"preview" binding:"omitempty,max=512"`
		Content *string    `json:"content" binding:"omitempty,max=50000"`
		Chapter nullableID `json:"chapter"`
		Branch  nullableID `json:"branch"`
		Order   *int       `json:"order"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	uid := userID(c)
	var ev types.Event
	err := h.db.First(&ev, "id = ? AND user_id = ?", id, uid).Error
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
		ev.Title = *req.Title
	}
	if req.Preview != nil {
		if !utf8.ValidString(*req.Preview) {
			c.JSON(http.StatusBadRequest, gin.H{"err": "invalid characters in input"})
			return
		}
		ev.Preview = h.sanitizer.Sanitize(*req.Preview)
	}
	if req.Content != nil {
		if !utf8.ValidString(*req.Content) {
			c.JSON(http.StatusBadRequest, gin.H{"err": "invalid characters in input"})
			return
		}
		ev.Content = h.sanitizer.Sanitize(*req.Content)
	}
	if req.Date != nil {
		ev.Date, _ = types.ParseDate(*req.Date)
	}
	// Explicit null detaches; an omitted field leaves the attachment alone.
	if req.Chapter.set {
		ev.ChapterID = req.Chapter.id
	}
	if req.Branch.set {
		ev.BranchID = req.Branch.id
	}
	if req.Order != nil {
		ev.Order = *req.Order
	}

	if !h.attachmentValid(c, uid, ev.ChapterID, ev.BranchID) {
		return
	}

	if err := h.db.Save(&ev).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h Events) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	err := timeline.DeleteEvent(h.db, userID(c), id)
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

// attachmentValid checks an event's attachment point: at most one of
// chapter/branch, both resolving to the caller's own rows, and a branch
// reference must actually be a branch. Writes the rejection itself and
// returns false on violation.
func (h Events) attachmentValid(c *gin.Context, uid uint64, chapterID, branchID *uint64) bool {
	if chapterID != nil && branchID != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": "event may attach to a chapter or a branch, not both"})
		return false
	}
	if chapterID != nil {
		var ch types.Chapter
		if err := h.db.First(&ch, "id = ? AND user_id = ?", *chapterID, uid).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"err": "chapter not found"})
			return false
		}
	}
	if branchID != nil {
		var br types.Chapter
		if err := h.db.First(&br, "id = ? AND user_id = ?", *branchID, uid).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"err": "branch not found"})
			return false
		}
		if br.Type != types.ChapterBranch {
			c.JSON(http.StatusBadRequest, gin.H{"err": "branch must reference a branch chapter"})
			return false
		}
	}
	return true
}

package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/branchline/branchline/src/api/timeline"
)

type Timeline struct {
	db *gorm.DB
}

func NewTimeline(db *gorm.DB) Timeline {
	return Timeline{db: db}
}

// Data serves the composite read: the whole of the caller's timeline in one
// response.
func (t Timeline) Data(c *gin.Context) {
	d, err := timeline.Assemble(t.db, userID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, d)
}

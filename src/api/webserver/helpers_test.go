package webserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"github.com/branchline/branchline/src/api/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dial := gormsqlite.Dialector{
		DriverName: "sqlite",
		DSN:        fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
	}
	db, err := gorm.Open(dial, &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&types.User{}, &types.Chapter{}, &types.Event{}))
	return db
}

// testRouter wires the secured routes with a stand-in auth middleware that
// pins the acting user, so handler behavior is tested without tokens.
func testRouter(db *gorm.DB, uid uint64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(ctxUserID, uid) })

	chapterH := NewChapters(db)
	eventH := NewEvents(db)
	timelineH := NewTimeline(db)

	r.GET("/v1/chapters", chapterH.List)
	r.POST("/v1/chapters", chapterH.Create)
	r.GET("/v1/chapters/:id", chapterH.Get)
	r.PUT("/v1/chapters/:id", chapterH.Update)
	r.PATCH("/v1/chapters/:id", chapterH.Update)
	r.DELETE("/v1/chapters/:id", chapterH.Delete)

	r.GET("/v1/events", eventH.List)
	r.POST("/v1/events", eventH.Create)
	r.GET("/v1/events/:id", eventH.Get)
	r.PUT("/v1/events/:id", eventH.Update)
	r.PATCH("/v1/events/:id", eventH.Update)
	r.DELETE("/v1/events/:id", eventH.Delete)

	r.GET("/v1/timeline", timelineH.Data)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), into))
}

func seedChapter(t *testing.T, db *gorm.DB, uid uint64, typ, title string, parent *uint64) types.Chapter {
	t.Helper()
	ch := types.Chapter{
		UserID:         uid,
		Type:           typ,
		Title:          title,
		StartDate:      types.NewDate(2020, 1, 1),
		ParentBranchID: parent,
	}
	require.NoError(t, db.Create(&ch).Error)
	return ch
}

func seedEvent(t *testing.T, db *gorm.DB, uid uint64, title string, chapter, branch *uint64) types.Event {
	t.Helper()
	ev := types.Event{
		UserID:    uid,
		Title:     title,
		Date:      types.NewDate(2020, 6, 1),
		ChapterID: chapter,
		BranchID:  branch,
	}
	require.NoError(t, db.Create(&ev).Error)
	return ev
}

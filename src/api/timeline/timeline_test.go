package timeline

import (
	"fmt"
	"testing"

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

func mkChapter(t *testing.T, db *gorm.DB, uid uint64, typ, title string, parent *uint64) types.Chapter {
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

func mkEvent(t *testing.T, db *gorm.DB, uid uint64, title string, chapter, branch *uint64) types.Event {
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

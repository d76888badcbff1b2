package timeline

import (
	"github.com/branchline/branchline/src/api/types"
	"gorm.io/gorm"
)

// Data is the composite timeline read: main periods with their entries, and
// branches expanded with their periods and loose entries. Two fixed levels of
// nesting, nothing deeper.
type Data struct {
	MainTimeline []types.Chapter `json:"main_timeline"`
	Branches     []types.Chapter `json:"branches"`
}

// Assemble builds the nested timeline view for one user. Read-only: ordering
// fields are operator metadata and are never touched here.
func Assemble(db *gorm.DB, userID uint64) (Data, error) {
	d := Data{MainTimeline: []types.Chapter{}, Branches: []types.Chapter{}}

	err := db.
		Preload("Entries", OrderEvents).
		Where("user_id = ? AND type = ? AND parent_branch_id IS NULL", userID, types.ChapterMainPeriod).
		Order(ChapterOrder).
		Find(&d.MainTimeline).Error
	if err != nil {
		return Data{}, err
	}

	err = db.
		Preload("Periods", OrderChapters).
		Preload("Periods.Entries", OrderEvents).
		Preload("BranchEntries", OrderEvents).
		Where("user_id = ? AND type = ? AND parent_branch_id IS NULL", userID, types.ChapterBranch).
		Order(ChapterOrder).
		Find(&d.Branches).Error
	if err != nil {
		return Data{}, err
	}

	Normalize(d.MainTimeline)
	Normalize(d.Branches)
	return d, nil
}

// Normalize replaces nil nested collections with empty ones so chapters
// always serialize entries/branch_entries/periods as arrays.
func Normalize(chs []types.Chapter) {
	for i := range chs {
		NormalizeChapter(&chs[i])
	}
}

func NormalizeChapter(ch *types.Chapter) {
	if ch.Entries == nil {
		ch.Entries = []types.Event{}
	}
	if ch.BranchEntries == nil {
		ch.BranchEntries = []types.Event{}
	}
	if ch.Periods == nil {
		ch.Periods = []types.Chapter{}
	}
	Normalize(ch.Periods)
}

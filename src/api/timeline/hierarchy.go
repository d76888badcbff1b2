package timeline

import (
	"errors"

	"github.com/branchline/branchline/src/api/types"
	"gorm.io/gorm"
)

var (
	ErrUnknownType      = errors.New("unknown chapter type")
	ErrParentRequired   = errors.New("branch_period requires parent_branch")
	ErrParentForbidden  = errors.New("parent_branch is only valid on branch_period")
	ErrParentNotBranch  = errors.New("parent_branch must reference a branch")
	ErrParentNotFound   = errors.New("parent_branch not found")
	ErrHasPeriods       = errors.New("chapter still has branch periods")
	ErrHasBranchEntries = errors.New("chapter still has branch entries")
)

// Ordering clauses shared by list reads and preloads. Chapters tie-break on
// sort_order before start_date; events the other way round.
const (
	ChapterOrder = "sort_order, start_date"
	EventOrder   = "date, sort_order"
)

func OrderChapters(db *gorm.DB) *gorm.DB { return db.Order(ChapterOrder) }
func OrderEvents(db *gorm.DB) *gorm.DB   { return db.Order(EventOrder) }

// ValidateChapter enforces the tree shape before a chapter is persisted:
// a branch_period must point at one of the owner's branches, every other type
// is top-level. A chapter already acting as a branch cannot change type while
// periods or branch entries still hang off it.
func ValidateChapter(db *gorm.DB, ch *types.Chapter) error {
	switch ch.Type {
	case types.ChapterMainPeriod, types.ChapterBranch:
		if ch.ParentBranchID != nil {
			return ErrParentForbidden
		}
	case types.ChapterBranchPeriod:
		if ch.ParentBranchID == nil {
			return ErrParentRequired
		}
		var parent types.Chapter
		err := db.First(&parent, "id = ? AND user_id = ?", *ch.ParentBranchID, ch.UserID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrParentNotFound
		}
		if err != nil {
			return err
		}
		if parent.Type != types.ChapterBranch {
			return ErrParentNotBranch
		}
	default:
		return ErrUnknownType
	}

	if ch.ID != 0 && ch.Type != types.ChapterBranch {
		var n int64
		if err := db.Model(&types.Chapter{}).Where("parent_branch_id = ?", ch.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrHasPeriods
		}
		if err := db.Model(&types.Event{}).Where("branch_id = ?", ch.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrHasBranchEntries
		}
	}
	return nil
}

// IsValidationErr reports whether err is one of the hierarchy rule
// violations, as opposed to a storage failure.
func IsValidationErr(err error) bool {
	for _, e := range []error{
		ErrUnknownType, ErrParentRequired, ErrParentForbidden,
		ErrParentNotBranch, ErrParentNotFound, ErrHasPeriods, ErrHasBranchEntries,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

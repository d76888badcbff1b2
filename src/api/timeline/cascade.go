package timeline

import (
	"github.com/branchline/branchline/src/api/types"
	"gorm.io/gorm"
)

// DeleteChapter removes one of the user's chapters inside a single
// transaction. Branches take their periods with them; events are detached
// rather than destroyed; provenance links to the removed chapter are cleared.
// Returns gorm.ErrRecordNotFound when the chapter is missing or owned by
// someone else.
func DeleteChapter(db *gorm.DB, userID, id uint64) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var ch types.Chapter
		if err := tx.First(&ch, "id = ? AND user_id = ?", id, userID).Error; err != nil {
			return err
		}
		return deleteChapterTx(tx, &ch)
	})
}

func deleteChapterTx(tx *gorm.DB, ch *types.Chapter) error {
	if ch.Type == types.ChapterBranch {
		var periods []types.Chapter
		if err := tx.Find(&periods, "parent_branch_id = ?", ch.ID).Error; err != nil {
			return err
		}
		for i := range periods {
			if err := deleteChapterTx(tx, &periods[i]); err != nil {
				return err
			}
		}
		// Entries attached loose under the branch survive without it.
		if err := tx.Model(&types.Event{}).Where("branch_id = ?", ch.ID).
			Update("branch_id", nil).Error; err != nil {
			return err
		}
	}

	// Entries under the chapter are detached, never destroyed.
	if err := tx.Model(&types.Event{}).Where("chapter_id = ?", ch.ID).
		Update("chapter_id", nil).Error; err != nil {
		return err
	}

	// Branches forked off this chapter lose the provenance link only.
	if err := tx.Model(&types.Chapter{}).Where("source_chapter_id = ?", ch.ID).
		Update("source_chapter_id", nil).Error; err != nil {
		return err
	}

	return tx.Delete(&types.Chapter{}, ch.ID).Error
}

// DeleteEvent removes one of the user's events together with every branch
// that forked from it, each branch going through the chapter cascade. A
// branch must not outlive its origin entry.
func DeleteEvent(db *gorm.DB, userID, id uint64) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var ev types.Event
		if err := tx.First(&ev, "id = ? AND user_id = ?", id, userID).Error; err != nil {
			return err
		}

		var spawned []types.Chapter
		if err := tx.Find(&spawned, "source_entry_id = ?", ev.ID).Error; err != nil {
			return err
		}
		for i := range spawned {
			if err := deleteChapterTx(tx, &spawned[i]); err != nil {
				return err
			}
		}

		return tx.Delete(&types.Event{}, ev.ID).Error
	})
}

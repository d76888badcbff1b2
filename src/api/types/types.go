package types

import "time"

// Chapter types
const (
	ChapterMainPeriod   = "main_period"
	ChapterBranch       = "branch"
	ChapterBranchPeriod = "branch_period"
)

// Accounts
type User struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Username  string    `gorm:"size:64" json:"username"`
	Password  string    `gorm:"size:128;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Timeline nodes. Main periods, branches and branch periods share one table;
// ParentBranchID is set on branch periods only. The order column is named
// sort_order so raw ORDER BY clauses never hit the reserved word.
type Chapter struct {
	ID              uint64    `gorm:"primaryKey" json:"id"`
	UserID          uint64    `gorm:"index;not null" json:"-"`
	Type            string    `gorm:"size:20;not null;default:main_period" json:"type"`
	Title           string    `gorm:"size:255;not null" json:"title"`
	Description     string    `gorm:"type:text" json:"description"`
	StartDate       Date      `gorm:"type:date;not null" json:"start_date"`
	EndDate         *Date     `gorm:"type:date" json:"end_date"`
	Color           string    `gorm:"size:7;default:'#3B82F6'" json:"color"`
	XPosition       int       `gorm:"default:0" json:"x_position"`
	ParentBranchID  *uint64   `gorm:"index" json:"parent_branch"`
	SourceEntryID   *uint64   `gorm:"index" json:"source_entry"`
	SourceChapterID *uint64   `json:"source_chapter"`
	Collapsed       bool      `gorm:"default:false" json:"collapsed"`
	Order           int       `gorm:"column:sort_order;default:0" json:"order"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Entries       []Event   `gorm:"foreignKey:ChapterID" json:"entries"`
	BranchEntries []Event   `gorm:"foreignKey:BranchID" json:"branch_entries"`
	Periods       []Chapter `gorm:"foreignKey:ParentBranchID" json:"periods"`
}

// Journal entries. ChapterID nests an entry under a period; BranchID attaches
// it loose under a branch. At most one of the two is set.
type Event struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	UserID    uint64    `gorm:"index;not null" json:"-"`
	ChapterID *uint64   `gorm:"index" json:"chapter"`
	BranchID  *uint64   `gorm:"index" json:"branch"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Date      Date      `gorm:"type:date;not null" json:"date"`
	Preview   string    `gorm:"size:512" json:"preview"`
	Content   string    `gorm:"type:text" json:"content"`
	Order     int       `gorm:"column:sort_order;default:0" json:"order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

package domain

import "time"

// ProjectTask is a locally cached remote task, keyed by remote id. It backs
// the project view so listing does not burn API quota, and is refreshed by
// project data fetches and sync runs. The completion-sticky rule from the
// submissions ledger applies here too.
type ProjectTask struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	ProjectID     string    `json:"projectId" gorm:"index;not null;default:''"`
	Title         string    `json:"title" gorm:"not null;default:''"`
	Content       string    `json:"content,omitempty"`
	Description   string    `json:"desc,omitempty"`
	StartDate     string    `json:"startDate,omitempty"`
	DueDate       string    `json:"dueDate,omitempty"`
	IsAllDay      bool      `json:"isAllDay" gorm:"default:false"`
	Priority      int       `json:"priority" gorm:"default:0"`
	Status        int       `json:"status" gorm:"default:0"`
	CompletedTime string    `json:"completedTime,omitempty"`
	Items         string    `json:"-"` // JSON-encoded checklist items
	RawJSON       string    `json:"-"`
	FetchedAt     time.Time `json:"fetchedAt"`
}

package domain

import "time"

// Submission is one durable ledger row per task ever created remotely.
// Rows are created exactly once after a successful remote creation and are
// only ever mutated by sync reconciliation. Never deleted.
type Submission struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"not null;default:''"`
	ProjectID   string    `json:"projectId" gorm:"index;not null;default:''"`
	ProjectName string    `json:"projectName" gorm:"not null;default:''"`
	CreatedAt   time.Time `json:"createdAt"`

	// Input snapshots captured at submission time.
	OriginalContent   string `json:"originalContent,omitempty"`
	AiPolishedContent string `json:"aiPolishedContent,omitempty"`
	RequestPayload    string `json:"requestPayload,omitempty"`

	// LatestSyncedContent is the most recent full remote snapshot (JSON);
	// the fields below are denormalized from it for querying.
	LatestSyncedContent string `json:"latestSyncedContent,omitempty"`
	Priority            int    `json:"priority" gorm:"default:0"`
	Status              int    `json:"status" gorm:"default:0"`
	CompletedTime       string `json:"completedTime,omitempty"`
	DueDate             string `json:"dueDate,omitempty"`
	StartDate           string `json:"startDate,omitempty"`
	IsAllDay            bool   `json:"isAllDay" gorm:"default:false"`

	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
	SyncError    string     `json:"syncError,omitempty"`
}

// StatusCompleted is the provider's completed task status. A submission that
// reached it stays there: a stale remote read racing a completion call must
// never downgrade it.
const StatusCompleted = 2

// RemoteSnapshot carries the reconciliation fields of a fresh remote read.
type RemoteSnapshot struct {
	LatestSyncedContent string
	Priority            int
	Status              int
	CompletedTime       string
	DueDate             string
	StartDate           string
	IsAllDay            bool
}

// SyncState is the singleton summary of the most recent sync run.
type SyncState struct {
	ID             int        `json:"-" gorm:"primaryKey"`
	LastSyncAt     *time.Time `json:"lastSyncAt"`
	LastSyncStatus string     `json:"lastSyncStatus"`
	TasksSynced    int        `json:"tasksSynced" gorm:"default:0"`
	TasksFailed    int        `json:"tasksFailed" gorm:"default:0"`
}

// Sync run outcomes.
const (
	SyncStatusOK          = "ok"
	SyncStatusPartial     = "partial"
	SyncStatusRateLimited = "rate_limited"
)

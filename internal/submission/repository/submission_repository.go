package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"didauto/internal/submission/domain"
)

const syncErrorLimit = 200

// submissionRepository implements SubmissionRepository using GORM
type submissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Record(submissions []*domain.Submission) error {
	if len(submissions) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&submissions).Error
}

var rangeDays = map[string]int{"1d": 1, "3d": 3, "7d": 7, "30d": 30}

func (r *submissionRepository) List(timeRange string) ([]*domain.Submission, error) {
	var submissions []*domain.Submission
	query := r.db.Order("created_at DESC")
	if days, ok := rangeDays[timeRange]; ok {
		cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
		query = query.Where("created_at >= ?", cutoff)
	}
	err := query.Find(&submissions).Error
	return submissions, err
}

func (r *submissionRepository) ListByProject(projectID string) ([]*domain.Submission, error) {
	var submissions []*domain.Submission
	err := r.db.Where("project_id = ?", projectID).
		Order("created_at DESC").Find(&submissions).Error
	return submissions, err
}

func (r *submissionRepository) ListSyncable() ([]*domain.Submission, error) {
	var submissions []*domain.Submission
	err := r.db.Where("id != '' AND project_id != ''").
		Order("created_at ASC").Find(&submissions).Error
	return submissions, err
}

func (r *submissionRepository) ApplySyncResult(id string, snapshot *domain.RemoteSnapshot) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing domain.Submission
		if err := tx.Where("id = ?", id).First(&existing).Error; err != nil {
			return err
		}

		status := snapshot.Status
		completedTime := snapshot.CompletedTime
		// Completion is sticky: a remote read racing a completion call may
		// still report the task incomplete, and must not win.
		if existing.Status == domain.StatusCompleted && snapshot.Status != domain.StatusCompleted {
			status = existing.Status
			completedTime = existing.CompletedTime
		}

		now := time.Now()
		return tx.Model(&domain.Submission{}).Where("id = ?", id).
			Updates(map[string]interface{}{
				"latest_synced_content": snapshot.LatestSyncedContent,
				"priority":              snapshot.Priority,
				"status":                status,
				"completed_time":        completedTime,
				"due_date":              snapshot.DueDate,
				"start_date":            snapshot.StartDate,
				"is_all_day":            snapshot.IsAllDay,
				"last_synced_at":        now,
				"sync_error":            "",
			}).Error
	})
}

func (r *submissionRepository) MarkSyncError(id string, message string) error {
	if runes := []rune(message); len(runes) > syncErrorLimit {
		message = string(runes[:syncErrorLimit])
	}
	now := time.Now()
	return r.db.Model(&domain.Submission{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"sync_error":     message,
			"last_synced_at": now,
		}).Error
}

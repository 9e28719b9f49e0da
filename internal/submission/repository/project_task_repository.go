package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"didauto/internal/submission/domain"
)

// projectTaskRepository implements ProjectTaskRepository using GORM
type projectTaskRepository struct {
	db *gorm.DB
}

func NewProjectTaskRepository(db *gorm.DB) ProjectTaskRepository {
	return &projectTaskRepository{db: db}
}

func (r *projectTaskRepository) Upsert(task *domain.ProjectTask) error {
	return upsertProjectTask(r.db, task)
}

func (r *projectTaskRepository) UpsertBatch(projectID string, tasks []*domain.ProjectTask) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, task := range tasks {
			if task.ProjectID == "" {
				task.ProjectID = projectID
			}
			if err := upsertProjectTask(tx, task); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertProjectTask(tx *gorm.DB, task *domain.ProjectTask) error {
	task.FetchedAt = time.Now()

	var existing domain.ProjectTask
	err := tx.Where("id = ?", task.ID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(task).Error
	}
	if err != nil {
		return err
	}

	// Sticky completion, same rule as the submissions ledger.
	if existing.Status == domain.StatusCompleted && task.Status != domain.StatusCompleted {
		task.Status = existing.Status
		task.CompletedTime = existing.CompletedTime
	}
	return tx.Save(task).Error
}

func (r *projectTaskRepository) ListByProject(projectID string) ([]*domain.ProjectTask, error) {
	var tasks []*domain.ProjectTask
	err := r.db.Where("project_id = ?", projectID).
		Order("due_date ASC").Find(&tasks).Error
	return tasks, err
}

func (r *projectTaskRepository) Delete(taskID string) error {
	return r.db.Delete(&domain.ProjectTask{}, "id = ?", taskID).Error
}

func (r *projectTaskRepository) UpdateStatus(taskID string, status int, completedTime string) error {
	return r.db.Model(&domain.ProjectTask{}).Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status":         status,
			"completed_time": completedTime,
		}).Error
}

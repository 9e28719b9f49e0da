package repository

import (
	"errors"

	"gorm.io/gorm"

	"didauto/internal/submission/domain"
)

// syncStateRepository implements SyncStateRepository using GORM. Exactly one
// row exists; it is overwritten at the end of every sync run.
type syncStateRepository struct {
	db *gorm.DB
}

func NewSyncStateRepository(db *gorm.DB) SyncStateRepository {
	return &syncStateRepository{db: db}
}

func (r *syncStateRepository) Get() (*domain.SyncState, error) {
	var state domain.SyncState
	err := r.db.Where("id = ?", 1).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.SyncState{ID: 1}, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *syncStateRepository) Update(state *domain.SyncState) error {
	state.ID = 1
	return r.db.Save(state).Error
}

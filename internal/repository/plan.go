package repository

import (
	"context"
	"errors"

	"github.com/aman-churiwal/quota-gateway/internal/models"
	"github.com/aman-churiwal/quota-gateway/internal/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PlanRepository struct {
	db *storage.Postgres
}

func NewPlanRepository(db *storage.Postgres) *PlanRepository {
	return &PlanRepository{db: db}
}

// Inserts a new plan. A taken name yields ErrDuplicate
func (r *PlanRepository) Create(ctx context.Context, plan *models.Plan) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	return translate(r.db.DB.WithContext(ctx).Create(plan).Error)
}

// Retrieves a plan by id, nil when it does not exist
func (r *PlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var plan models.Plan
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		First(&plan).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &plan, nil
}

func (r *PlanRepository) List(ctx context.Context) ([]models.Plan, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var plans []models.Plan
	err := r.db.DB.WithContext(ctx).
		Order("created_at ASC").
		Find(&plans).Error

	return plans, err
}

func (r *PlanRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	return translate(r.db.DB.WithContext(ctx).
		Model(&models.Plan{}).
		Where("id = ?", id).
		Updates(updates).Error)
}

func (r *PlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	return translate(r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Plan{}).Error)
}

func (r *PlanRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var count int64
	err := r.db.DB.WithContext(ctx).Model(&models.Plan{}).Count(&count).Error

	return count, err
}

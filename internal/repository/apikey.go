package repository

import (
	"context"
	"errors"
	"time"

	"github.com/aman-churiwal/quota-gateway/internal/models"
	"github.com/aman-churiwal/quota-gateway/internal/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type APIKeyRepository struct {
	db *storage.Postgres
}

func NewAPIKeyRepository(db *storage.Postgres) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) Create(ctx context.Context, apiKey *models.APIKey) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	return translate(r.db.DB.WithContext(ctx).Omit("Plan").Create(apiKey).Error)
}

// Retrieves an active key by fingerprint. Unknown and deactivated keys both yield nil
func (r *APIKeyRepository) FindActiveByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var apiKey models.APIKey
	err := r.db.DB.WithContext(ctx).
		Where("key_hash = ? AND is_active = ?", hash, true).
		First(&apiKey).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &apiKey, nil
}

func (r *APIKeyRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.APIKey, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var apiKey models.APIKey
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		First(&apiKey).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &apiKey, nil
}

func (r *APIKeyRepository) List(ctx context.Context) ([]models.APIKey, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var keys []models.APIKey
	err := r.db.DB.WithContext(ctx).
		Order("created_at ASC").
		Find(&keys).Error

	return keys, err
}

func (r *APIKeyRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	return translate(r.db.DB.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("id = ?", id).
		Updates(updates).Error)
}

// Sets last_used_at. Updating a key that no longer exists is not an error
func (r *APIKeyRepository) UpdateLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	return r.db.DB.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}

func (r *APIKeyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	return r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.APIKey{}).Error
}

// Reports whether any key, active or not, references the plan
func (r *APIKeyRepository) ExistsForPlan(ctx context.Context, planID uuid.UUID) (bool, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("plan_id = ?", planID).
		Limit(1).
		Count(&count).Error

	return count > 0, err
}

func (r *APIKeyRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var count int64
	err := r.db.DB.WithContext(ctx).Model(&models.APIKey{}).Count(&count).Error

	return count, err
}

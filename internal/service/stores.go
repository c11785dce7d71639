package service

import (
	"context"
	"time"

	"github.com/aman-churiwal/quota-gateway/internal/models"
	"github.com/google/uuid"
)

// PlanStore is implemented by repository.PlanRepository.
type PlanStore interface {
	Create(ctx context.Context, plan *models.Plan) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	List(ctx context.Context) ([]models.Plan, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

// APIKeyStore is implemented by repository.APIKeyRepository.
type APIKeyStore interface {
	Create(ctx context.Context, apiKey *models.APIKey) error
	FindActiveByHash(ctx context.Context, hash string) (*models.APIKey, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.APIKey, error)
	List(ctx context.Context) ([]models.APIKey, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	ExistsForPlan(ctx context.Context, planID uuid.UUID) (bool, error)
	Count(ctx context.Context) (int64, error)
}
